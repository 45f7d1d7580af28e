// Package matchingengine orchestrates per-symbol order books: submission,
// cancellation, fee assignment, the stop/stop-limit/take-profit trigger
// table, recent-trade retention, and event publication. Grounded on
// original_source/app/engine.py's MatchingEngine class, restructured around
// the teacher's per-symbol sync.Map-of-locks shape from
// pkg/orderbook/orderbook_manager.go.
package matchingengine

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/pkg/clock"
	"github.com/lattice-markets/matchcore/pkg/events"
	"github.com/lattice-markets/matchcore/pkg/money"
	"github.com/lattice-markets/matchcore/pkg/orderbook"
	"github.com/lattice-markets/matchcore/pkg/riskrule"
	"github.com/lattice-markets/matchcore/pkg/xid"
)

// symbolState bundles everything one symbol's matching needs behind a
// single mutex: the book, its parked trigger orders, and its recent-trade
// ring. One lock per symbol lets unrelated symbols match concurrently.
type symbolState struct {
	mu           sync.Mutex
	book         *orderbook.Book
	triggers     []*orderbook.Order
	recentTrades *deque.Deque[orderbook.Trade]
}

// Config bundles the tunables spec.md §6 leaves to configuration.
type Config struct {
	MakerFeeBps        decimal.Decimal // negative = rebate
	TakerFeeBps        decimal.Decimal
	RecentTradesLimit  int
	ShapeRule          riskrule.DecimalShapeRule
}

// Engine is the top-level matching engine, safe for concurrent use across
// symbols. Construct with New and seed known symbols, or let Submit create
// books lazily.
type Engine struct {
	cfg       Config
	shapeRule riskrule.DecimalShapeRule
	symbols   sync.Map // string -> *symbolState
	orderIdx  sync.Map // orderID -> string (symbol)
	orderIDs  *xid.Generator
	tradeIDs  *xid.Generator
	bus       *events.Bus
	log       *zap.Logger
}

// New constructs an Engine. log must be non-nil; use zap.NewNop() in tests.
func New(cfg Config, bus *events.Bus, log *zap.Logger) *Engine {
	if cfg.RecentTradesLimit <= 0 {
		cfg.RecentTradesLimit = 1000
	}
	return &Engine{
		cfg:       cfg,
		shapeRule: cfg.ShapeRule,
		orderIDs:  xid.NewGenerator("ord"),
		tradeIDs:  xid.NewGenerator("tr"),
		bus:       bus,
		log:       log,
	}
}

func (e *Engine) stateFor(symbol string) *symbolState {
	if v, ok := e.symbols.Load(symbol); ok {
		return v.(*symbolState)
	}
	st := &symbolState{book: orderbook.NewBook(symbol)}
	actual, _ := e.symbols.LoadOrStore(symbol, st)
	return actual.(*symbolState)
}

// Submit validates, then matches or parks req. Business-level rejection
// (bad request shape, failed FOK precheck) is reported via
// OrderResponse.Status, never as a Go error — only a programmer-facing
// NotFoundError for an unknown symbol policy would surface that way, and
// this engine has none: any symbol is accepted on first use.
func (e *Engine) Submit(req OrderRequest) *OrderResponse {
	if err := e.validate(req); err != nil {
		return &OrderResponse{Status: orderbook.Rejected, RejectReason: err.Error()}
	}

	order := &orderbook.Order{
		OrderID:            e.orderIDs.Next(),
		ClientOrderID:      req.ClientOrderID,
		Symbol:             req.Symbol,
		Side:               req.Side,
		Type:               req.Type,
		Quantity:           req.Quantity,
		Remaining:          req.Quantity,
		Price:              req.Price,
		HasPrice:           req.HasPrice,
		StopPrice:          req.StopPrice,
		HasStopPrice:       req.HasStopPrice,
		TakeProfitPrice:    req.TakeProfitPrice,
		HasTakeProfit:      req.HasTakeProfitPrice,
		Status:             orderbook.New,
		CreatedAt:          clock.NowISO(),
	}

	st := e.stateFor(req.Symbol)
	st.mu.Lock()

	// Advanced orders are parked unless their condition already holds —
	// spec.md resolves the "fire on placement" Open Question this way,
	// grounded on original_source/app/engine.py's process_triggers logic
	// applied once up front instead of deferred to the next trade print.
	activated := false
	if isAdvancedType(order.Type) {
		if e.triggerConditionHolds(st, order, false) {
			e.activateTrigger(st, order)
			activated = true
		} else {
			order.Status = orderbook.PendingTrigger
			st.triggers = append(st.triggers, order)
			e.orderIdx.Store(order.OrderID, req.Symbol)
			st.mu.Unlock()
			e.log.Info("order accepted as trigger", zap.String("order_id", order.OrderID), zap.String("symbol", req.Symbol))
			return &OrderResponse{OrderID: order.OrderID, Status: order.Status, FilledQuantity: decimal.Zero, RemainingQuantity: order.Remaining}
		}
	}

	if order.Type == orderbook.FOK {
		capPrice := order.Price
		if !st.book.FOKPrecheck(order.Side, capPrice, order.HasPrice, order.Remaining) {
			st.mu.Unlock()
			order.Status = orderbook.Rejected
			err := &InsufficientLiquidityError{OrderID: order.OrderID, Symbol: req.Symbol}
			return &OrderResponse{OrderID: order.OrderID, Status: order.Status, RejectReason: err.Error()}
		}
	}

	fills := st.book.Match(order)
	trades := e.recordFills(st, req.Symbol, fills)

	// An order activated on placement was already rested or cancelled by
	// activateTrigger.
	if order.Remaining.IsPositive() && !activated {
		if order.Type == orderbook.Limit {
			_ = st.book.AddLimit(order)
			e.orderIdx.Store(order.OrderID, req.Symbol)
		} else {
			// market/ioc/fok never rest — P6: any unfilled remainder is
			// cancelled rather than left live.
			order.Status = orderbook.Cancelled
		}
	}

	bids, asks := st.book.L2Snapshot(10)
	st.mu.Unlock()

	if len(trades) > 0 {
		e.publishTrades(req.Symbol, trades)
	}
	e.bus.PublishBookChanged(req.Symbol, bids, asks)
	if len(trades) > 0 {
		e.evaluateTriggers(req.Symbol)
	}

	return buildResponse(order, trades)
}

// Cancel removes order_id wherever it rests — book or trigger table.
func (e *Engine) Cancel(orderID string) (*CancelResponse, error) {
	symV, ok := e.orderIdx.Load(orderID)
	if !ok {
		return nil, &NotFoundError{Kind: "order", ID: orderID}
	}
	symbol := symV.(string)
	st := e.stateFor(symbol)

	st.mu.Lock()
	defer st.mu.Unlock()

	for i, o := range st.triggers {
		if o.OrderID == orderID {
			st.triggers = append(st.triggers[:i], st.triggers[i+1:]...)
			o.Status = orderbook.Cancelled
			e.orderIdx.Delete(orderID)
			return &CancelResponse{OrderID: orderID, Status: orderbook.Cancelled}, nil
		}
	}

	o, err := st.book.Cancel(orderID)
	if err != nil {
		return nil, &NotFoundError{Kind: "order", ID: orderID}
	}
	e.orderIdx.Delete(orderID)
	bids, asks := st.book.L2Snapshot(10)
	e.bus.PublishBookChanged(symbol, bids, asks)
	return &CancelResponse{OrderID: o.OrderID, Status: o.Status}, nil
}

// GetBBO returns the current best bid/offer for symbol.
func (e *Engine) GetBBO(symbol string) BBOView {
	st := e.stateFor(symbol)
	st.mu.Lock()
	bid, ask := st.book.BBO()
	st.mu.Unlock()
	return BBOView{Symbol: symbol, Bid: bid, Ask: ask, Timestamp: clock.NowISO()}
}

// GetL2 returns the top depth price levels per side for symbol.
func (e *Engine) GetL2(symbol string, depth int) L2View {
	st := e.stateFor(symbol)
	st.mu.Lock()
	bids, asks := st.book.L2Snapshot(depth)
	st.mu.Unlock()
	return L2View{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: clock.NowISO()}
}

// GetRecentTrades returns trades for symbol, oldest first. If sinceTradeID
// is empty, the full retained window is returned. Otherwise only trades
// after sinceTradeID are returned — if sinceTradeID isn't found in the
// retained window (it has already aged out), the full window is returned
// instead, matching original_source/app/engine.py's get_trades_since.
func (e *Engine) GetRecentTrades(symbol string, sinceTradeID string) RecentTradesView {
	st := e.stateFor(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	all := make([]orderbook.Trade, 0)
	if st.recentTrades != nil {
		for i := 0; i < st.recentTrades.Len(); i++ {
			all = append(all, st.recentTrades.At(i))
		}
	}

	var latestTradeID string
	if len(all) > 0 {
		latestTradeID = all[len(all)-1].TradeID
	}

	if sinceTradeID == "" {
		return RecentTradesView{Symbol: symbol, Trades: all, LatestTradeID: latestTradeID}
	}

	seen := false
	filtered := make([]orderbook.Trade, 0)
	for _, tr := range all {
		if seen {
			filtered = append(filtered, tr)
		} else if tr.TradeID == sinceTradeID {
			seen = true
		}
	}
	if !seen {
		filtered = all
	}
	return RecentTradesView{Symbol: symbol, Trades: filtered, LatestTradeID: latestTradeID}
}

func isAdvancedType(t orderbook.Type) bool {
	return t == orderbook.Stop || t == orderbook.StopLimit || t == orderbook.TakeProfit
}

// recordFills turns raw book fills into Trades, assigns fees, appends to
// the recent-trades ring, and returns them for publication. Must be called
// with st.mu held.
func (e *Engine) recordFills(st *symbolState, symbol string, fills []orderbook.TradeFill) []orderbook.Trade {
	if len(fills) == 0 {
		return nil
	}
	if st.recentTrades == nil {
		st.recentTrades = &deque.Deque[orderbook.Trade]{}
		st.recentTrades.Grow(e.cfg.RecentTradesLimit)
	}
	trades := make([]orderbook.Trade, 0, len(fills))
	for _, f := range fills {
		makerFee, takerFee := e.fees(f.Price, f.Quantity)
		tr := orderbook.Trade{
			TradeID:       e.tradeIDs.Next(),
			Symbol:        symbol,
			Price:         f.Price,
			Quantity:      f.Quantity,
			AggressorSide: f.TakerOrder.Side,
			MakerOrderID:  f.MakerOrder.OrderID,
			TakerOrderID:  f.TakerOrder.OrderID,
			Timestamp:     clock.NowISO(),
			MakerFee:      makerFee,
			TakerFee:      takerFee,
		}
		trades = append(trades, tr)
		st.recentTrades.PushBack(tr)
		if st.recentTrades.Len() > e.cfg.RecentTradesLimit {
			st.recentTrades.PopFront()
		}
	}
	return trades
}

// fees computes maker/taker fees on notional, half-even rounded to 8
// places, per spec.md §4.2's fee formula.
func (e *Engine) fees(price, qty decimal.Decimal) (maker, taker decimal.Decimal) {
	notional := money.Notional(price, qty)
	maker = money.QuantizeHalfEven(money.BpsOf(notional, e.cfg.MakerFeeBps), 8)
	taker = money.QuantizeHalfEven(money.BpsOf(notional, e.cfg.TakerFeeBps), 8)
	return maker, taker
}

func (e *Engine) publishTrades(symbol string, trades []orderbook.Trade) {
	for _, tr := range trades {
		e.bus.PublishTrade(symbol, tr)
	}
}

func buildResponse(order *orderbook.Order, trades []orderbook.Trade) *OrderResponse {
	views := make([]TradeView, 0, len(trades))
	for _, tr := range trades {
		isMaker := tr.MakerOrderID == order.OrderID
		views = append(views, TradeView{
			TradeID:  tr.TradeID,
			Price:    tr.Price,
			Quantity: tr.Quantity,
			MakerFee: tr.MakerFee,
			TakerFee: tr.TakerFee,
			IsMaker:  isMaker,
		})
	}
	return &OrderResponse{
		OrderID:           order.OrderID,
		Status:            order.Status,
		FilledQuantity:    order.Filled,
		RemainingQuantity: order.Remaining,
		Trades:            views,
	}
}
