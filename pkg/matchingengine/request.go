package matchingengine

import (
	"github.com/shopspring/decimal"

	"github.com/lattice-markets/matchcore/pkg/orderbook"
)

// OrderRequest is the public submission shape, grounded on
// original_source/app/models.py's pydantic OrderRequest — the optional
// fields mirror its Optional[Decimal] attributes via Has* booleans instead
// of pointers, matching this repo's Order type.
type OrderRequest struct {
	Symbol            string
	Side              orderbook.Side
	Type              orderbook.Type
	Quantity          decimal.Decimal
	Price             decimal.Decimal
	HasPrice          bool
	ClientOrderID     string
	StopPrice         decimal.Decimal
	HasStopPrice      bool
	TakeProfitPrice   decimal.Decimal
	HasTakeProfitPrice bool
}

// TradeView is the public projection of a fill, included on OrderResponse.
type TradeView struct {
	TradeID   string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	MakerFee  decimal.Decimal
	TakerFee  decimal.Decimal
	IsMaker   bool
}

// OrderResponse answers a Submit call. Status is always set — rejection
// (bad request, failed FOK precheck) is communicated through Status, not a
// Go error, matching original_source/app/engine.py's submit_order which
// never raises for ordinary business outcomes.
type OrderResponse struct {
	OrderID            string
	Status             orderbook.Status
	FilledQuantity     decimal.Decimal
	RemainingQuantity  decimal.Decimal
	Trades             []TradeView
	RejectReason       string
}

// CancelResponse answers a Cancel call.
type CancelResponse struct {
	OrderID string
	Status  orderbook.Status
}

// BBOView is the public best-bid/offer projection for a symbol.
type BBOView struct {
	Symbol    string
	Bid       *orderbook.BBOLevel
	Ask       *orderbook.BBOLevel
	Timestamp string
}

// L2View is the public depth projection for a symbol.
type L2View struct {
	Symbol    string
	Bids      []orderbook.BBOLevel
	Asks      []orderbook.BBOLevel
	Timestamp string
}

// RecentTradesView answers a trade-history query. LatestTradeID is the most
// recent trade_id retained for the symbol (empty if none), suitable for
// passing back in as sinceTradeID on the next incremental poll.
type RecentTradesView struct {
	Symbol        string
	Trades        []orderbook.Trade
	LatestTradeID string
}
