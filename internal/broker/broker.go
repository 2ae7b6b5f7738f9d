// Package broker defines the order-execution collaborator the strategy talks
// to, along with the read-only account and instrument descriptors it needs
// for sizing. The core never retries a rejected order; failures surface in
// the result and the caller decides whether to skip the signal.
package broker

import (
	"context"
	"time"
)

// Direction is the side of an order.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Instrument describes the traded symbol's pricing and volume constraints.
type Instrument struct {
	Symbol     string  `json:"symbol"`
	TickSize   float64 `json:"tick_size"`   // minimum price increment
	PipSize    float64 `json:"pip_size"`    // quoted pip in price units
	PipValue   float64 `json:"pip_value"`   // value of one pip for one lot
	LotSize    float64 `json:"lot_size"`    // units per lot
	VolumeStep float64 `json:"volume_step"` // units
	VolumeMin  float64 `json:"volume_min"`  // units
	VolumeMax  float64 `json:"volume_max"`  // units
}

// PipValuePerUnit returns the value of one pip for a single unit of volume.
// Zero when the lot size is unknown, which callers must treat as a sizing
// reject.
func (i Instrument) PipValuePerUnit() float64 {
	if i.LotSize == 0 {
		return 0
	}
	return i.PipValue / i.LotSize
}

// Account is the read-only account state consumed by sizing.
type Account struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// OrderRequest is a fire-and-forget market order with protective distances
// expressed in pips from the fill price.
type OrderRequest struct {
	Direction      Direction `json:"direction"`
	Volume         float64   `json:"volume"` // units
	StopLossPips   float64   `json:"stop_loss_pips"`
	TakeProfitPips float64   `json:"take_profit_pips"`
	Label          string    `json:"label"`
}

// OrderResult reports the outcome of an execution attempt.
type OrderResult struct {
	Success    bool      `json:"success"`
	PositionID string    `json:"position_id,omitempty"`
	EntryPrice float64   `json:"entry_price,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Broker is the execution interface the strategy drives.
type Broker interface {
	// ExecuteOrder submits a market order. A failed result is final for the
	// current bar; no internal retry happens.
	ExecuteOrder(ctx context.Context, req OrderRequest) OrderResult

	// OpenPositionCount returns the number of open positions carrying label.
	OpenPositionCount(label string) int

	// Account returns the current account state.
	Account() Account

	// Instrument returns the traded instrument's descriptor.
	Instrument() Instrument
}
