package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/broker"
	"market-structure-bot/internal/marketdata"
	"market-structure-bot/internal/risk"
	"market-structure-bot/internal/zigzag"
)

func buildSeries(symbol, interval string, start time.Time, step time.Duration, highs, lows []float64) *marketdata.Series {
	s := marketdata.NewSeries(symbol, interval)
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		s.Append(marketdata.Bar{
			OpenTime: start.Add(time.Duration(i) * step),
			Open:     mid,
			High:     highs[i],
			Low:      lows[i],
			Close:    mid,
		})
	}
	return s
}

// testFixture wires a full strategy around hand-built trading and hourly
// histories. The trading series carries a confirmed bullish break (high 100
// at bar 1 taken out by high 105 at bar 5); the hourly series gives the
// filter a clean rise to 110 and fall to 90 for the stop/target anchors.
func testFixture(t *testing.T) (*BosStrategy, *analysis.StructureEngine, *broker.PaperBroker) {
	t.Helper()

	hourlyStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	hourlyLows := []float64{100, 102, 104, 106, 108, 106, 102, 98, 94, 90}
	hourlyHighs := []float64{102, 104, 106, 108, 110, 108, 104, 100, 96, 92}
	hourlySeries := buildSeries("EURUSDT", "1h", hourlyStart, time.Hour, hourlyHighs, hourlyLows)

	tradingStart := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tradingHighs := []float64{99, 100, 95, 93, 101, 105, 99}
	tradingLows := []float64{97, 98, 91, 90, 95, 103, 97}
	tradingSeries := buildSeries("EURUSDT", "15m", tradingStart, 15*time.Minute, tradingHighs, tradingLows)

	instrument := broker.Instrument{
		Symbol:     "EURUSDT",
		TickSize:   0.1,
		PipSize:    1,
		PipValue:   1,
		LotSize:    1,
		VolumeStep: 1,
		VolumeMin:  1,
		VolumeMax:  1000,
	}

	paperBroker := broker.NewPaperBroker(instrument, 10000, "USD", func() (float64, bool) {
		bar, ok := tradingSeries.Last()
		return bar.Close, ok
	}, zerolog.Nop())

	engine := analysis.NewStructureEngine(tradingSeries, 1, zerolog.Nop())
	engine.Update()

	filter := zigzag.NewFilter(hourlySeries, zigzag.Params{Depth: 3, Deviation: 5, Backstep: 1}, instrument.TickSize)
	for i := 0; i < hourlySeries.Count(); i++ {
		filter.Update(i)
	}

	strat := NewBosStrategy(BosConfig{
		Symbol:             "EURUSDT",
		Interval:           "15m",
		RiskPercent:        1,
		StopLossBufferPips: 2,
		MinStopLossPips:    5,
		MinTakeProfitPips:  5,
		TakeProfitRR:       2,
		MaxOpenPositions:   1,
	}, engine, filter, hourlySeries, paperBroker, risk.NewManager(0), zerolog.Nop())

	return strat, engine, paperBroker
}

// TestBosStrategyBuySignal tests the full buy path: confirmed break, hourly
// anchors, sized volume
func TestBosStrategyBuySignal(t *testing.T) {
	strat, _, _ := testFixture(t)

	sig, err := strat.Evaluate(6)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if sig.Type != SignalBuy {
		t.Fatalf("Expected buy signal, got %s (%s)", sig.Type, sig.Reason)
	}
	if sig.EntryPrice != 98 {
		t.Errorf("Expected entry at last close 98, got %v", sig.EntryPrice)
	}
	// Stop anchors on the hourly low 90 minus a 2-pip buffer: 10 pips away.
	if sig.StopLossPips != 10 {
		t.Errorf("Expected 10 stop pips, got %v", sig.StopLossPips)
	}
	// Target anchors on the hourly high 110: 12 pips away.
	if sig.TakeProfitPips != 12 {
		t.Errorf("Expected 12 target pips, got %v", sig.TakeProfitPips)
	}
	// riskAmount=100, rawUnits=100/(10*1)=10.
	if sig.Volume != 10 {
		t.Errorf("Expected volume 10, got %v", sig.Volume)
	}
}

// TestBosStrategyHighWaterMark tests that a break is evaluated exactly once
func TestBosStrategyHighWaterMark(t *testing.T) {
	strat, _, _ := testFixture(t)

	first, err := strat.Evaluate(6)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if first.Type != SignalBuy {
		t.Fatalf("Expected buy on first pass, got %s", first.Type)
	}

	second, err := strat.Evaluate(6)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if second.Type != SignalNone {
		t.Errorf("Consumed break must not re-trigger, got %s", second.Type)
	}
}

// TestBosStrategyPrime tests that priming consumes historical breaks
func TestBosStrategyPrime(t *testing.T) {
	strat, _, _ := testFixture(t)

	strat.Prime()
	sig, err := strat.Evaluate(6)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if sig.Type != SignalNone {
		t.Errorf("Primed strategy must skip backfilled breaks, got %s", sig.Type)
	}
}

// TestBosStrategyMaxOpenPositions tests the open-position guard
func TestBosStrategyMaxOpenPositions(t *testing.T) {
	strat, _, paperBroker := testFixture(t)

	sig, _ := strat.Evaluate(6)
	if sig.Type != SignalBuy {
		t.Fatalf("Expected buy, got %s", sig.Type)
	}
	result := paperBroker.ExecuteOrder(context.Background(), broker.OrderRequest{
		Direction:      sig.Direction,
		Volume:         sig.Volume,
		StopLossPips:   sig.StopLossPips,
		TakeProfitPips: sig.TakeProfitPips,
		Label:          TradeLabel,
	})
	if !result.Success {
		t.Fatalf("Order should fill: %s", result.Error)
	}

	// Force the mark back so the same break is seen again, then expect the
	// position guard to reject it.
	strat.lastTradedBosIndex = -1
	sig, _ = strat.Evaluate(6)
	if sig.Type != SignalNone {
		t.Errorf("Open position should block a second trade, got %s", sig.Type)
	}
}

// TestBosStrategyMinStopReject tests the minimum stop distance filter
func TestBosStrategyMinStopReject(t *testing.T) {
	strat, _, _ := testFixture(t)
	strat.config.MinStopLossPips = 50

	sig, err := strat.Evaluate(6)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if sig.Type != SignalNone {
		t.Errorf("Stop below minimum must reject, got %s", sig.Type)
	}
	if strat.LastTradedBosIndex() < 0 {
		t.Error("Rejected break must still be consumed")
	}
}
