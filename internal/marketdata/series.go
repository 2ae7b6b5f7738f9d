package marketdata

import (
	"sync"
	"time"
)

// Bar represents a single closed OHLC candle.
type Bar struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CloseHandler is invoked after a new closed bar has been appended to a series.
// The index passed is the index of the freshly closed bar.
type CloseHandler func(index int)

// Series is an append-only, index-addressable OHLC history for one
// symbol/timeframe pair. Index 0 is the oldest bar. Bars are immutable once
// appended. Reads are safe from multiple goroutines; appends must come from a
// single feed goroutine.
type Series struct {
	mu       sync.RWMutex
	symbol   string
	interval string
	bars     []Bar
	handlers []CloseHandler
}

// NewSeries creates an empty series for the given symbol and interval.
func NewSeries(symbol, interval string) *Series {
	return &Series{symbol: symbol, interval: interval}
}

func (s *Series) Symbol() string   { return s.symbol }
func (s *Series) Interval() string { return s.interval }

// Count returns the number of closed bars in the series.
func (s *Series) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars)
}

// Bar returns the bar at index. The zero Bar is returned for out-of-range
// indices so detectors can treat missing history as "no data".
func (s *Series) Bar(index int) Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.bars) {
		return Bar{}
	}
	return s.bars[index]
}

// Last returns the most recent closed bar and true, or false when empty.
func (s *Series) Last() (Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

func (s *Series) High(index int) float64        { return s.Bar(index).High }
func (s *Series) Low(index int) float64         { return s.Bar(index).Low }
func (s *Series) Open(index int) float64        { return s.Bar(index).Open }
func (s *Series) Close(index int) float64       { return s.Bar(index).Close }
func (s *Series) OpenTime(index int) time.Time { return s.Bar(index).OpenTime }

// Append adds a closed bar and notifies subscribers. Bars must arrive in
// chronological order; a bar whose open time is not after the previous bar's
// open time is dropped (duplicate close events from a reconnecting stream).
func (s *Series) Append(bar Bar) {
	s.mu.Lock()
	if n := len(s.bars); n > 0 && !bar.OpenTime.After(s.bars[n-1].OpenTime) {
		s.mu.Unlock()
		return
	}
	s.bars = append(s.bars, bar)
	index := len(s.bars) - 1
	handlers := s.handlers
	s.mu.Unlock()

	for _, h := range handlers {
		h(index)
	}
}

// OnBarClose registers a handler called after each appended bar. Handlers run
// synchronously on the feed goroutine, preserving the one-recompute-per-bar
// cadence the analytics engines assume.
func (s *Series) OnBarClose(h CloseHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Snapshot returns a copy of the bars in [from, count). Used by API handlers
// that must not hold the series lock while serializing.
func (s *Series) Snapshot(from int) []Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(s.bars) {
		return nil
	}
	out := make([]Bar, len(s.bars)-from)
	copy(out, s.bars[from:])
	return out
}
