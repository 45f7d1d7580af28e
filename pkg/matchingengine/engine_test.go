package matchingengine

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/pkg/events"
	"github.com/lattice-markets/matchcore/pkg/orderbook"
	"github.com/lattice-markets/matchcore/pkg/riskrule"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testEngine() *Engine {
	return New(Config{
		MakerFeeBps:       dec("-1.0"),
		TakerFeeBps:       dec("2.5"),
		RecentTradesLimit: 1000,
		ShapeRule:         riskrule.DefaultDecimalShapeRule(),
	}, events.NewBus(), zap.NewNop())
}

func limitReq(symbol string, side orderbook.Side, price, qty string) OrderRequest {
	return OrderRequest{Symbol: symbol, Side: side, Type: orderbook.Limit, Price: dec(price), HasPrice: true, Quantity: dec(qty)}
}

// S1: resting liquidity and sweep.
func TestScenarioRestingLiquidityAndSweep(t *testing.T) {
	e := testEngine()
	a := e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "1"))
	if a.Status != orderbook.New {
		t.Fatalf("expected order A accepted as new, got %s", a.Status)
	}
	b := e.Submit(limitReq("BTC-USD", orderbook.Sell, "30010", "2"))
	if b.Status != orderbook.New {
		t.Fatalf("expected order B accepted as new, got %s", b.Status)
	}

	taker := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1.5")})
	if len(taker.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(taker.Trades))
	}
	if !taker.Trades[0].Price.Equal(dec("30000")) || !taker.Trades[0].Quantity.Equal(dec("1")) {
		t.Errorf("expected first fill @30000 qty 1, got %+v", taker.Trades[0])
	}
	if !taker.Trades[1].Price.Equal(dec("30010")) || !taker.Trades[1].Quantity.Equal(dec("0.5")) {
		t.Errorf("expected second fill @30010 qty 0.5, got %+v", taker.Trades[1])
	}
	if !taker.FilledQuantity.Equal(dec("1.5")) || !taker.RemainingQuantity.IsZero() {
		t.Errorf("expected taker fully filled, got filled=%s remaining=%s", taker.FilledQuantity, taker.RemainingQuantity)
	}

	bbo := e.GetBBO("BTC-USD")
	if bbo.Ask == nil || !bbo.Ask.Price.Equal(dec("30010")) || !bbo.Ask.Quantity.Equal(dec("1.5")) {
		t.Errorf("expected resting ask 30010 qty 1.5, got %+v", bbo.Ask)
	}
}

// S2: no trade-through on a limit order.
func TestScenarioNoTradeThroughOnLimit(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "2"))

	resp := e.Submit(limitReq("BTC-USD", orderbook.Buy, "30005", "1"))
	if len(resp.Trades) != 1 || !resp.Trades[0].Price.Equal(dec("30000")) {
		t.Fatalf("expected single trade at maker price 30000, got %+v", resp.Trades)
	}

	bbo := e.GetBBO("BTC-USD")
	if bbo.Ask == nil || !bbo.Ask.Price.Equal(dec("30000")) || !bbo.Ask.Quantity.Equal(dec("1")) {
		t.Errorf("expected remaining ask 30000 qty 1, got %+v", bbo.Ask)
	}
}

// S3: FOK insufficient liquidity is rejected with no trades and no mutation.
func TestScenarioFOKInsufficientLiquidity(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "0.4"))
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30010", "0.3"))

	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.FOK, Quantity: dec("1.0")})
	if resp.Status != orderbook.Rejected {
		t.Fatalf("expected FOK rejection, got %s", resp.Status)
	}
	if len(resp.Trades) != 0 {
		t.Errorf("expected no trades on rejected FOK, got %+v", resp.Trades)
	}

	bbo := e.GetBBO("BTC-USD")
	if !bbo.Ask.Quantity.Equal(dec("0.4")) {
		t.Errorf("expected book unchanged by rejected FOK, got ask qty %s", bbo.Ask.Quantity)
	}
}

// S4: FOK success fills completely across levels.
func TestScenarioFOKSuccess(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "0.4"))
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30010", "0.3"))

	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.FOK, Quantity: dec("0.7")})
	if resp.Status != orderbook.Filled {
		t.Fatalf("expected FOK filled, got %s", resp.Status)
	}
	if len(resp.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(resp.Trades))
	}

	bbo := e.GetBBO("BTC-USD")
	if bbo.Ask != nil {
		t.Errorf("expected ask side empty after FOK consumed it fully, got %+v", bbo.Ask)
	}
}

// S5: a resting stop fires once its condition is satisfied by a trade print.
func TestScenarioStopActivation(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Buy, "29900", "10"))

	stopResp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Sell, Type: orderbook.Stop, Quantity: dec("1"), StopPrice: dec("29950"), HasStopPrice: true})
	if stopResp.Status != orderbook.PendingTrigger {
		t.Fatalf("expected stop parked pending trigger, got %s", stopResp.Status)
	}

	marketResp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Sell, Type: orderbook.Market, Quantity: dec("1")})
	if len(marketResp.Trades) != 1 || !marketResp.Trades[0].Price.Equal(dec("29900")) {
		t.Fatalf("expected market sell to trade at 29900, got %+v", marketResp.Trades)
	}

	trades := e.GetRecentTrades("BTC-USD", "")
	if len(trades.Trades) != 2 {
		t.Fatalf("expected 2 total trades after stop fires, got %d", len(trades.Trades))
	}
}

func TestGetRecentTradesSinceFiltersToNewTrades(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "100", "1"))
	first := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1")})
	firstTradeID := first.Trades[0].TradeID

	e.Submit(limitReq("BTC-USD", orderbook.Sell, "101", "1"))
	e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1")})

	all := e.GetRecentTrades("BTC-USD", "")
	if len(all.Trades) != 2 {
		t.Fatalf("expected 2 trades total, got %d", len(all.Trades))
	}

	since := e.GetRecentTrades("BTC-USD", firstTradeID)
	if len(since.Trades) != 1 || since.Trades[0].Price.Equal(dec("100")) {
		t.Fatalf("expected only the trade after %s, got %+v", firstTradeID, since.Trades)
	}
	if since.LatestTradeID != all.Trades[len(all.Trades)-1].TradeID {
		t.Errorf("expected LatestTradeID to track the newest trade, got %s", since.LatestTradeID)
	}

	unknown := e.GetRecentTrades("BTC-USD", "tr_does_not_exist")
	if len(unknown.Trades) != 2 {
		t.Errorf("expected unknown since_trade_id to fall back to the full window, got %d trades", len(unknown.Trades))
	}
}

// S6: cancellation preserves FIFO order among the remaining resting orders.
func TestScenarioCancellationPreservesFIFO(t *testing.T) {
	e := testEngine()
	x := e.Submit(limitReq("BTC-USD", orderbook.Buy, "30000", "1"))
	y := e.Submit(limitReq("BTC-USD", orderbook.Buy, "30000", "1"))
	z := e.Submit(limitReq("BTC-USD", orderbook.Buy, "30000", "1"))

	if _, err := e.Cancel(y.OrderID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Sell, Type: orderbook.Market, Quantity: dec("2")})
	if len(resp.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(resp.Trades))
	}
	if resp.Trades[0].TradeID == "" {
		t.Fatalf("expected trade ids to be assigned")
	}

	if _, err := e.Cancel(x.OrderID); err == nil {
		t.Errorf("expected cancel of already-filled X to be not-found")
	}
	if _, err := e.Cancel(z.OrderID); err == nil {
		t.Errorf("expected Z, next in line after cancelled Y, to be filled and not-found")
	}
}

func TestRejectsMissingPriceOnLimit(t *testing.T) {
	e := testEngine()
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit, Quantity: dec("1")})
	if resp.Status != orderbook.Rejected {
		t.Errorf("expected rejection for limit order missing price, got %s", resp.Status)
	}
}

func TestRejectsStopLimitMissingStopPrice(t *testing.T) {
	e := testEngine()
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.StopLimit, Quantity: dec("1"), Price: dec("30000"), HasPrice: true})
	if resp.Status != orderbook.Rejected {
		t.Errorf("expected rejection for stop_limit missing stop_price, got %s", resp.Status)
	}
}

func TestRejectsMarketOrderCarryingPrice(t *testing.T) {
	e := testEngine()
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1"), Price: dec("30000"), HasPrice: true})
	if resp.Status != orderbook.Rejected {
		t.Errorf("expected rejection for market order carrying a price, got %s", resp.Status)
	}
}

func TestRejectsStopOrderCarryingPrice(t *testing.T) {
	e := testEngine()
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Sell, Type: orderbook.Stop, Quantity: dec("1"), StopPrice: dec("29950"), HasStopPrice: true, Price: dec("29900"), HasPrice: true})
	if resp.Status != orderbook.Rejected {
		t.Errorf("expected rejection for stop order carrying a price, got %s", resp.Status)
	}
}

func TestMarketOrderNeverRestsWhenUnfilled(t *testing.T) {
	e := testEngine()
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1")})
	if resp.Status != orderbook.Cancelled {
		t.Errorf("expected unfilled market order cancelled, got %s", resp.Status)
	}
	bbo := e.GetBBO("BTC-USD")
	if bbo.Bid != nil {
		t.Errorf("expected market order to never rest, found resting bid %+v", bbo.Bid)
	}
}

func TestFeesSignAndMagnitude(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "1"))
	resp := e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("1")})
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}
	tr := resp.Trades[0]
	if !tr.MakerFee.IsNegative() {
		t.Errorf("expected negative maker fee (rebate), got %s", tr.MakerFee)
	}
	if !tr.TakerFee.IsPositive() {
		t.Errorf("expected positive taker fee, got %s", tr.TakerFee)
	}
	wantMaker := dec("30000").Mul(dec("-1.0")).Div(dec("10000")).RoundBank(8)
	if !tr.MakerFee.Equal(wantMaker) {
		t.Errorf("expected maker fee %s, got %s", wantMaker, tr.MakerFee)
	}
}

// S7: the snapshot records a partially-filled resting order and a parked
// trigger with their statuses, and the resting quantity survives recovery.
func TestSnapshotRecoverPreservesOrderStatus(t *testing.T) {
	e := testEngine()
	e.Submit(limitReq("BTC-USD", orderbook.Sell, "30000", "5"))
	e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market, Quantity: dec("2")})
	e.Submit(OrderRequest{Symbol: "BTC-USD", Side: orderbook.Sell, Type: orderbook.Stop, Quantity: dec("1"), StopPrice: dec("29000"), HasStopPrice: true})

	snap := e.Snapshot()

	e2 := testEngine()
	e2.Recover(snap)

	bbo := e2.GetBBO("BTC-USD")
	if bbo.Ask == nil || !bbo.Ask.Quantity.Equal(dec("3")) {
		t.Fatalf("expected 3 remaining resting on the ask side after recovery, got %+v", bbo.Ask)
	}

	rec := snap.Symbols["BTC-USD"]
	var restingStatus, triggerStatus string
	for _, or := range rec.OpenOrders {
		restingStatus = or.Status
	}
	for _, or := range rec.Triggers {
		triggerStatus = or.Status
	}
	if restingStatus != string(orderbook.PartiallyFilled) {
		t.Errorf("expected persisted resting order status partially_filled, got %q", restingStatus)
	}
	if triggerStatus != string(orderbook.PendingTrigger) {
		t.Errorf("expected persisted trigger status pending_trigger, got %q", triggerStatus)
	}
}
