// Package recorder persists the observable outputs of a bot run: generated
// signals and executed orders. It is a history sink, not a state store; the
// bot never reads any of it back.
package recorder

import (
	"context"
	"time"
)

// SignalRecord is one strategy evaluation that produced a decision.
type SignalRecord struct {
	Symbol     string
	Strategy   string
	SignalType string
	Direction  string
	EntryPrice float64
	StopPips   float64
	TargetPips float64
	Volume     float64
	Reason     string
	Time       time.Time
}

// OrderRecord is one execution attempt against the broker.
type OrderRecord struct {
	PositionID string
	Symbol     string
	Direction  string
	Volume     float64
	EntryPrice float64
	Success    bool
	Error      string
	Time       time.Time
}

// Recorder is the history sink interface.
type Recorder interface {
	RecordSignal(ctx context.Context, rec SignalRecord) error
	RecordOrder(ctx context.Context, rec OrderRecord) error
	Close()
}

// Noop discards everything; used when recording is disabled.
type Noop struct{}

func (Noop) RecordSignal(context.Context, SignalRecord) error { return nil }
func (Noop) RecordOrder(context.Context, OrderRecord) error   { return nil }
func (Noop) Close()                                           {}
