package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PriceSource supplies the current market price for paper fills.
type PriceSource func() (float64, bool)

// PaperPosition is a simulated open position.
type PaperPosition struct {
	ID         string    `json:"id"`
	Direction  Direction `json:"direction"`
	Volume     float64   `json:"volume"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Label      string    `json:"label"`
	OpenedAt   time.Time `json:"opened_at"`
}

// PaperBroker simulates execution against the live price feed: orders fill
// immediately at the current price, positions close when price crosses their
// stop or target. Balance moves by the realized pip value.
type PaperBroker struct {
	mu         sync.RWMutex
	account    Account
	instrument Instrument
	positions  map[string]*PaperPosition
	price      PriceSource
	logger     zerolog.Logger
}

// NewPaperBroker creates a paper broker with a starting balance. An empty
// currency defaults to USD.
func NewPaperBroker(instrument Instrument, startingBalance float64, currency string, price PriceSource, logger zerolog.Logger) *PaperBroker {
	if currency == "" {
		currency = "USD"
	}
	return &PaperBroker{
		account:    Account{Balance: startingBalance, Currency: currency},
		instrument: instrument,
		positions:  make(map[string]*PaperPosition),
		price:      price,
		logger:     logger.With().Str("component", "PaperBroker").Logger(),
	}
}

// ExecuteOrder fills the order at the current feed price.
func (b *PaperBroker) ExecuteOrder(ctx context.Context, req OrderRequest) OrderResult {
	if err := ctx.Err(); err != nil {
		return OrderResult{Error: err.Error(), Time: time.Now().UTC()}
	}
	if req.Volume <= 0 {
		return OrderResult{Error: "volume must be positive", Time: time.Now().UTC()}
	}

	price, ok := b.price()
	if !ok {
		return OrderResult{Error: "no market price available", Time: time.Now().UTC()}
	}

	slDistance := req.StopLossPips * b.instrument.PipSize
	tpDistance := req.TakeProfitPips * b.instrument.PipSize

	pos := &PaperPosition{
		ID:         uuid.New().String(),
		Direction:  req.Direction,
		Volume:     req.Volume,
		EntryPrice: price,
		Label:      req.Label,
		OpenedAt:   time.Now().UTC(),
	}
	if req.Direction == Buy {
		pos.StopLoss = price - slDistance
		pos.TakeProfit = price + tpDistance
	} else {
		pos.StopLoss = price + slDistance
		pos.TakeProfit = price - tpDistance
	}

	b.mu.Lock()
	b.positions[pos.ID] = pos
	b.mu.Unlock()

	b.logger.Info().
		Str("position_id", pos.ID).
		Str("direction", string(req.Direction)).
		Float64("volume", req.Volume).
		Float64("entry", price).
		Float64("stop_loss", pos.StopLoss).
		Float64("take_profit", pos.TakeProfit).
		Str("label", req.Label).
		Msg("Paper order filled")

	return OrderResult{
		Success:    true,
		PositionID: pos.ID,
		EntryPrice: price,
		Time:       time.Now().UTC(),
	}
}

// OnBarClose checks every open position against the closed bar's range and
// settles those whose stop or target was touched. Stop checks run before
// target checks, the conservative order when both fall inside one bar.
func (b *PaperBroker) OnBarClose(high, low float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, pos := range b.positions {
		exit, hit := exitPrice(pos, high, low)
		if !hit {
			continue
		}
		pnl := b.realizedPnL(pos, exit)
		b.account.Balance += pnl
		delete(b.positions, id)

		b.logger.Info().
			Str("position_id", id).
			Float64("exit", exit).
			Float64("pnl", pnl).
			Float64("balance", b.account.Balance).
			Msg("Paper position closed")
	}
}

func exitPrice(pos *PaperPosition, high, low float64) (float64, bool) {
	if pos.Direction == Buy {
		if low <= pos.StopLoss {
			return pos.StopLoss, true
		}
		if high >= pos.TakeProfit {
			return pos.TakeProfit, true
		}
	} else {
		if high >= pos.StopLoss {
			return pos.StopLoss, true
		}
		if low <= pos.TakeProfit {
			return pos.TakeProfit, true
		}
	}
	return 0, false
}

func (b *PaperBroker) realizedPnL(pos *PaperPosition, exit float64) float64 {
	move := exit - pos.EntryPrice
	if pos.Direction == Sell {
		move = -move
	}
	pipValuePerUnit := b.instrument.PipValuePerUnit()
	if b.instrument.PipSize == 0 || pipValuePerUnit == 0 {
		return 0
	}
	pips := move / b.instrument.PipSize
	return pips * pipValuePerUnit * pos.Volume
}

// OpenPositionCount returns the number of open positions carrying label.
func (b *PaperBroker) OpenPositionCount(label string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count := 0
	for _, pos := range b.positions {
		if pos.Label == label {
			count++
		}
	}
	return count
}

// OpenPositions returns a snapshot of all open positions.
func (b *PaperBroker) OpenPositions() []PaperPosition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PaperPosition, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out
}

// Account returns the current simulated account state.
func (b *PaperBroker) Account() Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.account
}

// Instrument returns the configured instrument descriptor.
func (b *PaperBroker) Instrument() Instrument {
	return b.instrument
}

// String implements fmt.Stringer for status logging.
func (b *PaperBroker) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("paper[%s balance=%.2f positions=%d]",
		b.instrument.Symbol, b.account.Balance, len(b.positions))
}
