package strategy

import (
	"time"

	"market-structure-bot/internal/broker"
)

// Strategy defines the interface for trading strategies
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Evaluate checks if conditions are met for order placement after the
	// bar at the given index closed
	Evaluate(index int) (*Signal, error)

	// GetSymbol returns the symbol this strategy trades
	GetSymbol() string

	// GetInterval returns the candle interval
	GetInterval() string
}

// Signal represents a trading signal
type Signal struct {
	Type           SignalType
	Symbol         string
	Direction      broker.Direction
	EntryPrice     float64
	StopLossPips   float64
	TakeProfitPips float64
	Volume         float64 // units, already quantized
	Reason         string
	Timestamp      time.Time
}

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalNone SignalType = "NONE"
)
