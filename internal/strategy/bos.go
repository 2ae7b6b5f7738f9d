package strategy

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/broker"
	"market-structure-bot/internal/marketdata"
	"market-structure-bot/internal/risk"
	"market-structure-bot/internal/zigzag"
)

// TradeLabel tags every position the BoS strategy opens.
const TradeLabel = "market-structure-bos"

// BosConfig configures the break-of-structure strategy
type BosConfig struct {
	Symbol             string
	Interval           string
	RiskPercent        float64
	StopLossBufferPips float64
	MinStopLossPips    float64
	MinTakeProfitPips  float64
	TakeProfitRR       float64 // fallback multiple when no anchor target exists
	MaxOpenPositions   int     // per label; <= 0 means 1
}

// BosStrategy trades confirmed break-of-structure events. Stops anchor on the
// most recent hourly zigzag pivot on the protective side, targets on the
// opposite pivot, and volume comes from fixed-fractional sizing. Each
// confirmed break is evaluated exactly once: the confirming bar index is a
// high-water mark that advances whether or not the setup passes validation.
type BosStrategy struct {
	config   BosConfig
	engine   *analysis.StructureEngine
	h1Filter *zigzag.Filter
	h1Series *marketdata.Series
	broker   broker.Broker
	riskMgr  *risk.Manager
	logger   zerolog.Logger

	lastTradedBosIndex int
}

// NewBosStrategy creates the strategy around its collaborators.
func NewBosStrategy(config BosConfig, engine *analysis.StructureEngine, h1Filter *zigzag.Filter, h1Series *marketdata.Series, b broker.Broker, riskMgr *risk.Manager, logger zerolog.Logger) *BosStrategy {
	if config.TakeProfitRR <= 0 {
		config.TakeProfitRR = 2
	}
	if config.MaxOpenPositions <= 0 {
		config.MaxOpenPositions = 1
	}
	return &BosStrategy{
		config:             config,
		engine:             engine,
		h1Filter:           h1Filter,
		h1Series:           h1Series,
		broker:             b,
		riskMgr:            riskMgr,
		logger:             logger.With().Str("component", "BosStrategy").Logger(),
		lastTradedBosIndex: -1,
	}
}

func (s *BosStrategy) Name() string {
	return fmt.Sprintf("BoS-%s-%s", s.config.Symbol, s.config.Interval)
}

func (s *BosStrategy) GetSymbol() string {
	return s.config.Symbol
}

func (s *BosStrategy) GetInterval() string {
	return s.config.Interval
}

// Prime advances the high-water mark past all breaks already present in the
// snapshot. Called once after historical backfill so stale breaks from the
// warm-up data never trigger orders.
func (s *BosStrategy) Prime() {
	snap := s.engine.Snapshot()
	for _, e := range snap.BosEvents {
		if e.Confirmed && e.EndIndex > s.lastTradedBosIndex {
			s.lastTradedBosIndex = e.EndIndex
		}
	}
	s.logger.Info().Int("high_water", s.lastTradedBosIndex).Msg("Strategy primed")
}

// Evaluate inspects the analysis snapshot after the bar at index closed and
// returns a signal when a new confirmed break passes all trade filters. A nil
// error with SignalNone means no trade; validation failures consume the break
// and report the reason in the signal.
func (s *BosStrategy) Evaluate(index int) (*Signal, error) {
	snap := s.engine.Snapshot()

	event, ok := s.newestUntradedBreak(snap.BosEvents)
	if !ok {
		return &Signal{Type: SignalNone}, nil
	}
	// Consume the break regardless of what validation decides below.
	s.lastTradedBosIndex = event.EndIndex

	series := s.engine.Series()
	barTime := series.OpenTime(index)

	if ok, reason := s.riskMgr.CanTrade(barTime); !ok {
		return s.reject(event, reason), nil
	}
	if s.broker.OpenPositionCount(TradeLabel) >= s.config.MaxOpenPositions {
		return s.reject(event, "max open positions reached"), nil
	}

	instrument := s.broker.Instrument()
	if instrument.PipSize <= 0 {
		return nil, fmt.Errorf("instrument %s has no pip size", instrument.Symbol)
	}
	entryPrice := series.Close(index)

	points := zigzag.ClassifyPoints(s.h1Filter.Values(), s.h1Series, barTime, instrument.PipSize)

	var stopLossPips, takeProfitPips float64
	direction := broker.Sell
	if event.Bullish {
		direction = broker.Buy
	}

	if direction == broker.Buy {
		anchor, found := zigzag.LastOfType(points, analysis.SwingLow)
		if !found {
			return s.reject(event, "no hourly zigzag low for stop"), nil
		}
		stopLevel := anchor.Price - s.config.StopLossBufferPips*instrument.PipSize
		if entryPrice <= stopLevel {
			return s.reject(event, "entry at or below stop level"), nil
		}
		stopLossPips = (entryPrice - stopLevel) / instrument.PipSize

		target, found := zigzag.LastOfType(points, analysis.SwingHigh)
		if found && target.Price > entryPrice {
			takeProfitPips = (target.Price - entryPrice) / instrument.PipSize
		} else {
			takeProfitPips = stopLossPips * s.config.TakeProfitRR
		}
	} else {
		anchor, found := zigzag.LastOfType(points, analysis.SwingHigh)
		if !found {
			return s.reject(event, "no hourly zigzag high for stop"), nil
		}
		stopLevel := anchor.Price + s.config.StopLossBufferPips*instrument.PipSize
		if entryPrice >= stopLevel {
			return s.reject(event, "entry at or above stop level"), nil
		}
		stopLossPips = (stopLevel - entryPrice) / instrument.PipSize

		target, found := zigzag.LastOfType(points, analysis.SwingLow)
		if found && target.Price < entryPrice {
			takeProfitPips = (entryPrice - target.Price) / instrument.PipSize
		} else {
			takeProfitPips = stopLossPips * s.config.TakeProfitRR
		}
	}

	if stopLossPips < s.config.MinStopLossPips {
		return s.reject(event, fmt.Sprintf("stop %.1f pips below minimum %.1f", stopLossPips, s.config.MinStopLossPips)), nil
	}
	if takeProfitPips < s.config.MinTakeProfitPips {
		return s.reject(event, fmt.Sprintf("target %.1f pips below minimum %.1f", takeProfitPips, s.config.MinTakeProfitPips)), nil
	}

	volume := risk.SizeVolume(risk.Inputs{
		Balance:          s.broker.Account().Balance,
		RiskPercent:      s.config.RiskPercent,
		StopDistancePips: stopLossPips,
		PipValuePerUnit:  instrument.PipValuePerUnit(),
		VolumeStep:       instrument.VolumeStep,
		VolumeMin:        instrument.VolumeMin,
		VolumeMax:        instrument.VolumeMax,
		Rounding:         risk.RoundNearest,
	})
	if volume <= 0 {
		return s.reject(event, "volume calculation rejected inputs"), nil
	}

	sigType := SignalSell
	if direction == broker.Buy {
		sigType = SignalBuy
	}
	s.logger.Info().
		Str("direction", string(direction)).
		Float64("entry", entryPrice).
		Float64("stop_pips", stopLossPips).
		Float64("target_pips", takeProfitPips).
		Float64("volume", volume).
		Int("bos_index", event.EndIndex).
		Msg("Signal generated")

	return &Signal{
		Type:           sigType,
		Symbol:         s.config.Symbol,
		Direction:      direction,
		EntryPrice:     entryPrice,
		StopLossPips:   stopLossPips,
		TakeProfitPips: takeProfitPips,
		Volume:         volume,
		Reason:         fmt.Sprintf("confirmed BoS at %.5f (bar %d)", event.Level, event.EndIndex),
		Timestamp:      barTime,
	}, nil
}

// LastTradedBosIndex returns the current high-water mark.
func (s *BosStrategy) LastTradedBosIndex() int {
	return s.lastTradedBosIndex
}

func (s *BosStrategy) newestUntradedBreak(events []analysis.BosEvent) (analysis.BosEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Confirmed && e.EndIndex > s.lastTradedBosIndex {
			return e, true
		}
	}
	return analysis.BosEvent{}, false
}

func (s *BosStrategy) reject(event analysis.BosEvent, reason string) *Signal {
	s.logger.Info().
		Int("bos_index", event.EndIndex).
		Str("reason", reason).
		Msg("Break skipped")
	return &Signal{
		Type:      SignalNone,
		Symbol:    s.config.Symbol,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}
