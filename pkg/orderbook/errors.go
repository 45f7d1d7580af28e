package orderbook

import "errors"

var (
	// ErrOrderNotFound is returned by Cancel when order_id isn't resting.
	ErrOrderNotFound = errors.New("orderbook: order not found")
	// ErrMissingPrice is a programmer error: AddLimit requires a priced order
	// with positive remaining quantity, and returns this for either failure.
	ErrMissingPrice = errors.New("orderbook: order has no price")
)
