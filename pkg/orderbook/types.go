package orderbook

import "github.com/shopspring/decimal"

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Type is the order type, matching spec.md's OrderType enum exactly.
type Type string

const (
	Market     Type = "market"
	Limit      Type = "limit"
	IOC        Type = "ioc"
	FOK        Type = "fok"
	Stop       Type = "stop"
	StopLimit  Type = "stop_limit"
	TakeProfit Type = "take_profit"
)

// Status is the order lifecycle state.
type Status string

const (
	New             Status = "new"
	PartiallyFilled Status = "partially_filled"
	Filled          Status = "filled"
	Cancelled       Status = "cancelled"
	Rejected        Status = "rejected"
	PendingTrigger  Status = "pending_trigger"
)

// Order is identity plus mutable execution state. The book and engine are
// the only mutators; callers elsewhere should treat a returned *Order as a
// read-only snapshot of the moment it was observed.
type Order struct {
	OrderID         string
	ClientOrderID   string
	Symbol          string
	Side            Side
	Type            Type
	Price           decimal.Decimal // zero value means "absent" for market/stop/take_profit
	HasPrice        bool
	StopPrice       decimal.Decimal
	HasStopPrice    bool
	TakeProfitPrice decimal.Decimal
	HasTakeProfit   bool
	Quantity        decimal.Decimal
	Remaining       decimal.Decimal
	Filled          decimal.Decimal
	Status          Status
	CreatedAt       string // UTC ISO-8601 with trailing Z
}

// IsActive reports whether the order still has quantity left to match.
func (o *Order) IsActive() bool {
	return o.Remaining.IsPositive()
}

// Trade is immutable once created.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
	Timestamp     string
	MakerFee      decimal.Decimal
	TakerFee      decimal.Decimal
}
