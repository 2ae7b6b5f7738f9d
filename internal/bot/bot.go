// Package bot wires the market data feed, structure analysis, strategy and
// broker into one running instance per symbol.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/annotation"
	"market-structure-bot/internal/broker"
	"market-structure-bot/internal/events"
	"market-structure-bot/internal/marketdata"
	"market-structure-bot/internal/recorder"
	"market-structure-bot/internal/risk"
	"market-structure-bot/internal/strategy"
	"market-structure-bot/internal/zigzag"
)

// Deps carries the collaborators the bot orchestrates. All fields are
// required except Snapshots, which may be nil when Redis publishing is off.
type Deps struct {
	TradingSeries *marketdata.Series
	HourlySeries  *marketdata.Series
	Engine        *analysis.StructureEngine
	HourlyFilter  *zigzag.Filter
	Strategy      *strategy.BosStrategy
	Broker        *broker.PaperBroker
	RiskManager   *risk.Manager
	Annotator     *annotation.Annotator
	Recorder      recorder.Recorder
	Snapshots     *recorder.SnapshotPublisher
	Stream        *marketdata.KlineStream
	Bus           *events.EventBus
}

// Bot drives one strategy over one symbol. Bar-close handlers run on the feed
// goroutine, so the per-bar pipeline is strictly sequential.
type Bot struct {
	deps   Deps
	logger zerolog.Logger

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a bot around its collaborators.
func New(deps Deps, logger zerolog.Logger) *Bot {
	return &Bot{
		deps:   deps,
		logger: logger.With().Str("component", "Bot").Logger(),
	}
}

// Start backfills history, primes the analysis state, and begins consuming
// the live feed. Handlers are registered only after backfill so historical
// bars never generate orders.
func (b *Bot) Start(backfillLimit int) error {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return nil
	}
	b.isRunning = true
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	if err := b.deps.Stream.Backfill(backfillLimit); err != nil {
		b.logger.Warn().Err(err).Msg("Backfill failed, starting with empty history")
	}

	// Warm the hourly filter and the structure snapshot from backfilled bars.
	for i := 0; i < b.deps.HourlySeries.Count(); i++ {
		b.deps.HourlyFilter.Update(i)
	}
	b.deps.Engine.Update()
	b.deps.Strategy.Prime()
	b.annotate()

	b.deps.HourlySeries.OnBarClose(b.onHourlyBar)
	b.deps.TradingSeries.OnBarClose(b.onTradingBar)

	if err := b.deps.Stream.Start(); err != nil {
		return err
	}

	b.deps.Bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{
		"symbol":   b.deps.TradingSeries.Symbol(),
		"interval": b.deps.TradingSeries.Interval(),
	}})
	b.logger.Info().
		Str("symbol", b.deps.TradingSeries.Symbol()).
		Str("interval", b.deps.TradingSeries.Interval()).
		Int("bars", b.deps.TradingSeries.Count()).
		Msg("Bot started")
	return nil
}

// Stop shuts down the feed and publishes the stop event.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = false
	b.cancel()
	b.mu.Unlock()

	b.deps.Stream.Stop()
	b.deps.Bus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{
		"symbol": b.deps.TradingSeries.Symbol(),
	}})
	b.logger.Info().Msg("Bot stopped")
}

func (b *Bot) onHourlyBar(index int) {
	b.deps.HourlyFilter.Update(index)
}

func (b *Bot) onTradingBar(index int) {
	series := b.deps.TradingSeries
	bar := series.Bar(index)

	b.deps.Bus.PublishBarClosed(series.Symbol(), series.Interval(), index, bar.Close)

	// Settle simulated positions against the bar's range before any new order.
	b.deps.Broker.OnBarClose(bar.High, bar.Low)
	account := b.deps.Broker.Account()
	if account.Balance != b.deps.RiskManager.Balance() {
		b.deps.Bus.PublishBalanceUpdate(account.Balance, account.Currency)
	}
	b.deps.RiskManager.UpdateBalance(account.Balance)

	snap := b.deps.Engine.Update()
	b.annotate()
	b.publishBosEvents(snap, index)

	sig, err := b.deps.Strategy.Evaluate(index)
	if err != nil {
		b.logger.Error().Err(err).Msg("Strategy evaluation failed")
		b.deps.Bus.PublishError("strategy", "evaluation failed", err)
		return
	}
	if sig.Type != strategy.SignalNone {
		b.execute(sig)
	}

	b.publishSnapshot(snap)
}

func (b *Bot) execute(sig *strategy.Signal) {
	b.deps.Bus.PublishSignal(b.deps.Strategy.Name(), sig.Symbol, string(sig.Type), sig.Reason, sig.EntryPrice)
	b.record(func(ctx context.Context) error {
		return b.deps.Recorder.RecordSignal(ctx, recorder.SignalRecord{
			Symbol:     sig.Symbol,
			Strategy:   b.deps.Strategy.Name(),
			SignalType: string(sig.Type),
			Direction:  string(sig.Direction),
			EntryPrice: sig.EntryPrice,
			StopPips:   sig.StopLossPips,
			TargetPips: sig.TakeProfitPips,
			Volume:     sig.Volume,
			Reason:     sig.Reason,
			Time:       sig.Timestamp,
		})
	})

	result := b.deps.Broker.ExecuteOrder(b.ctx, broker.OrderRequest{
		Direction:      sig.Direction,
		Volume:         sig.Volume,
		StopLossPips:   sig.StopLossPips,
		TakeProfitPips: sig.TakeProfitPips,
		Label:          strategy.TradeLabel,
	})

	if result.Success {
		b.deps.RiskManager.RegisterTrade(sig.Timestamp)
		b.deps.Bus.PublishOrderPlaced(result.PositionID, sig.Symbol, string(sig.Direction), result.EntryPrice, sig.Volume)
	} else {
		b.logger.Warn().Str("error", result.Error).Msg("Order rejected")
		b.deps.Bus.PublishOrderRejected(sig.Symbol, string(sig.Direction), result.Error)
	}

	b.record(func(ctx context.Context) error {
		return b.deps.Recorder.RecordOrder(ctx, recorder.OrderRecord{
			PositionID: result.PositionID,
			Symbol:     sig.Symbol,
			Direction:  string(sig.Direction),
			Volume:     sig.Volume,
			EntryPrice: result.EntryPrice,
			Success:    result.Success,
			Error:      result.Error,
			Time:       result.Time,
		})
	})
}

// annotate refreshes chart markers from the latest snapshot. Marker names are
// index-derived, so repeat calls are cheap no-ops.
func (b *Bot) annotate() {
	snap := b.deps.Engine.Snapshot()
	series := b.deps.TradingSeries

	for _, p := range snap.Structure {
		label := "L"
		if p.Type == analysis.SwingHigh {
			label = "H"
		}
		b.deps.Annotator.AnnotateSwing(p, label)
	}
	for _, e := range snap.BosEvents {
		if e.Confirmed {
			b.deps.Annotator.AnnotateBos(e, series.OpenTime(e.EndIndex))
		}
	}
}

func (b *Bot) publishBosEvents(snap analysis.Snapshot, index int) {
	for _, e := range snap.BosEvents {
		if e.EndIndex == index {
			b.deps.Bus.PublishBosDetected(b.deps.TradingSeries.Symbol(), e.Level, e.EndIndex, e.Bullish, e.Confirmed)
		}
	}
}

func (b *Bot) publishSnapshot(snap analysis.Snapshot) {
	if b.deps.Snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	if err := b.deps.Snapshots.Publish(ctx, b.deps.TradingSeries.Symbol(), snap); err != nil {
		b.logger.Warn().Err(err).Msg("Snapshot publish failed")
	}
}

func (b *Bot) record(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("History recording failed")
	}
}
