// Package zigzag implements a depth/deviation/backstep pivot filter over an
// OHLC series plus a classifier that reconstructs high/low labels from the
// filter's raw output. One Filter instance serves exactly one timeframe; its
// state lives for the life of the instance and is never reset mid-stream.
package zigzag

import (
	"math"

	"market-structure-bot/internal/marketdata"
)

// trendState tracks which pivot type would end the current leg.
type trendState int

const (
	trendNeutral trendState = iota
	// expectingHigh: the last surfaced pivot was a low, a qualifying high
	// ends the leg.
	expectingHigh
	// expectingLow: the last surfaced pivot was a high.
	expectingLow
)

// Params configures a Filter. Deviation is expressed in ticks of the
// instrument's minimum price increment.
type Params struct {
	Depth     int
	Deviation float64
	Backstep  int
}

// Filter computes one confirmed pivot value per bar (or NaN) from rolling
// depth-window extremes, with minimum-deviation gating and backstep
// suppression of too-close same-type pivots. Update must be called once per
// bar index in strictly increasing order.
type Filter struct {
	series   *marketdata.Series
	params   Params
	tickSize float64

	// Carried filter state: the last accepted rolling extremes, the current
	// leg's tracked extremes and their bar indices, and the leg direction.
	lastLow       float64
	lastHigh      float64
	legLow        float64
	legHigh       float64
	lastLowIndex  int
	lastHighIndex int
	trend         trendState

	// Per-bar candidate marks and the surfaced output series. Marks use 0 as
	// the empty sentinel (prices are strictly positive); values use NaN.
	lowMarks  []float64
	highMarks []float64
	values    []float64
}

// NewFilter creates a filter over the series. A zero tickSize disables the
// filter (every bar yields NaN) until SetTickSize provides a valid increment,
// since deviation distances cannot be evaluated against a zero unit.
func NewFilter(series *marketdata.Series, params Params, tickSize float64) *Filter {
	if params.Depth < 1 {
		params.Depth = 12
	}
	if params.Backstep < 0 {
		params.Backstep = 0
	}
	return &Filter{
		series:   series,
		params:   params,
		tickSize: tickSize,
	}
}

// SetTickSize supplies the minimum price increment when it becomes known.
func (f *Filter) SetTickSize(tickSize float64) {
	f.tickSize = tickSize
}

// Value returns the surfaced pivot value at index, NaN when none.
func (f *Filter) Value(index int) float64 {
	if index < 0 || index >= len(f.values) {
		return math.NaN()
	}
	return f.values[index]
}

// Values returns a copy of the surfaced output series.
func (f *Filter) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// Len returns the number of bars processed so far.
func (f *Filter) Len() int {
	return len(f.values)
}

// Update processes the bar at index and returns its surfaced pivot value, or
// NaN when the bar carries no confirmed pivot. Earlier values may be
// retracted (set to NaN) by backstep suppression or leg extension.
func (f *Filter) Update(index int) float64 {
	f.grow(index)

	if f.tickSize == 0 {
		return math.NaN()
	}
	if index < f.params.Depth {
		return math.NaN()
	}

	f.markLow(index)
	f.markHigh(index)
	f.surface(index)

	return f.values[index]
}

func (f *Filter) grow(index int) {
	for len(f.values) <= index {
		f.lowMarks = append(f.lowMarks, 0)
		f.highMarks = append(f.highMarks, 0)
		f.values = append(f.values, math.NaN())
	}
}

// markLow applies the rolling-minimum candidate test for bar index: the
// depth-window low must be fresh, within deviation of the bar's own low, and
// deeper than any confirmed low inside the trailing backstep span.
func (f *Filter) markLow(index int) {
	current := f.rollingLow(index)

	if current == f.lastLow {
		current = 0
	} else {
		f.lastLow = current
		if f.series.Low(index)-current > f.params.Deviation*f.tickSize {
			current = 0
		} else {
			for i := 1; i <= f.params.Backstep; i++ {
				j := index - i
				if j >= 0 && f.lowMarks[j] != 0 && f.lowMarks[j] > current {
					if f.values[j] == f.lowMarks[j] {
						f.values[j] = math.NaN()
					}
					f.lowMarks[j] = 0
				}
			}
		}
	}

	if current != 0 && f.series.Low(index) == current {
		f.lowMarks[index] = current
	} else {
		f.lowMarks[index] = 0
	}
}

func (f *Filter) markHigh(index int) {
	current := f.rollingHigh(index)

	if current == f.lastHigh {
		current = 0
	} else {
		f.lastHigh = current
		if current-f.series.High(index) > f.params.Deviation*f.tickSize {
			current = 0
		} else {
			for i := 1; i <= f.params.Backstep; i++ {
				j := index - i
				if j >= 0 && f.highMarks[j] != 0 && f.highMarks[j] < current {
					if f.values[j] == f.highMarks[j] {
						f.values[j] = math.NaN()
					}
					f.highMarks[j] = 0
				}
			}
		}
	}

	if current != 0 && f.series.High(index) == current {
		f.highMarks[index] = current
	} else {
		f.highMarks[index] = 0
	}
}

// surface runs the trend-continuation state machine over the bar's candidate
// marks and decides which pivot, if any, becomes the output value. While
// expecting a high, a deeper low extends the current leg and retracts the
// previously surfaced low; a high only ends the leg when it clears the
// tracked low, otherwise it is discarded as noise. Mirror rules apply while
// expecting a low.
func (f *Filter) surface(index int) {
	f.values[index] = math.NaN()

	switch f.trend {
	case trendNeutral:
		if f.highMarks[index] > 0 {
			f.legHigh = f.highMarks[index]
			f.lastHighIndex = index
			f.trend = expectingLow
			f.values[index] = f.legHigh
		} else if f.lowMarks[index] > 0 {
			f.legLow = f.lowMarks[index]
			f.lastLowIndex = index
			f.trend = expectingHigh
			f.values[index] = f.legLow
		}

	case expectingHigh:
		if f.lowMarks[index] > 0 && f.lowMarks[index] < f.legLow {
			if f.lastLowIndex != index {
				f.values[f.lastLowIndex] = math.NaN()
			}
			f.legLow = f.lowMarks[index]
			f.lastLowIndex = index
			f.values[index] = f.legLow
		} else if f.highMarks[index] > 0 {
			if f.legLow == 0 || f.highMarks[index] > f.legLow {
				f.legHigh = f.highMarks[index]
				f.lastHighIndex = index
				f.values[index] = f.legHigh
				f.trend = expectingLow
			} else {
				f.highMarks[index] = 0
			}
		}

	case expectingLow:
		if f.highMarks[index] > 0 && f.highMarks[index] > f.legHigh {
			if f.lastHighIndex != index {
				f.values[f.lastHighIndex] = math.NaN()
			}
			f.legHigh = f.highMarks[index]
			f.lastHighIndex = index
			f.values[index] = f.legHigh
		} else if f.lowMarks[index] > 0 {
			if f.legHigh == 0 || f.lowMarks[index] < f.legHigh {
				f.legLow = f.lowMarks[index]
				f.lastLowIndex = index
				f.values[index] = f.legLow
				f.trend = expectingHigh
			} else {
				f.lowMarks[index] = 0
			}
		}
	}
}

// rollingLow returns the minimum low over the trailing depth bars ending at
// index, inclusive.
func (f *Filter) rollingLow(index int) float64 {
	low := math.MaxFloat64
	for i := index - f.params.Depth + 1; i <= index; i++ {
		if i < 0 {
			continue
		}
		if l := f.series.Low(i); l < low {
			low = l
		}
	}
	return low
}

func (f *Filter) rollingHigh(index int) float64 {
	high := -math.MaxFloat64
	for i := index - f.params.Depth + 1; i <= index; i++ {
		if i < 0 {
			continue
		}
		if h := f.series.High(i); h > high {
			high = h
		}
	}
	return high
}
