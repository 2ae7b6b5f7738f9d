package analysis

import (
	"time"

	"market-structure-bot/internal/marketdata"
)

// SwingType labels a pivot as a swing high or swing low.
type SwingType string

const (
	SwingHigh SwingType = "high"
	SwingLow  SwingType = "low"
)

// Opposite returns the other swing type.
func (t SwingType) Opposite() SwingType {
	if t == SwingHigh {
		return SwingLow
	}
	return SwingHigh
}

// SwingPoint is a confirmed local price extremum. Points are never mutated
// after creation; the structure builder replaces them wholesale.
type SwingPoint struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Type  SwingType `json:"type"`
}

// DetectPivots rescans the series and returns every confirmed pivot in
// chronological order. A bar at index i is a swing high when its high is
// above-or-equal to every high in the surrounding lookback window on the left
// and strictly above every high on the right; the right-strict rule breaks
// flat-top ties in favor of the last bar of the plateau. Swing lows mirror
// this. A bar yields at most one pivot, with the high test taking precedence.
//
// Bars within lookback of either series end lack a full window and are never
// emitted, so every pivot confirmation lags lookback bars behind live price.
func DetectPivots(series *marketdata.Series, lookback int) []SwingPoint {
	count := series.Count()
	if lookback < 1 || count < 2*lookback+1 {
		return nil
	}

	var pivots []SwingPoint
	for i := lookback; i < count-lookback; i++ {
		if isHighPivot(series, i, lookback) {
			pivots = append(pivots, SwingPoint{
				Index: i,
				Time:  series.OpenTime(i),
				Price: series.High(i),
				Type:  SwingHigh,
			})
		} else if isLowPivot(series, i, lookback) {
			pivots = append(pivots, SwingPoint{
				Index: i,
				Time:  series.OpenTime(i),
				Price: series.Low(i),
				Type:  SwingLow,
			})
		}
	}
	return pivots
}

func isHighPivot(series *marketdata.Series, index, lookback int) bool {
	price := series.High(index)
	for k := 1; k <= lookback; k++ {
		if series.High(index-k) > price || series.High(index+k) >= price {
			return false
		}
	}
	return true
}

func isLowPivot(series *marketdata.Series, index, lookback int) bool {
	price := series.Low(index)
	for k := 1; k <= lookback; k++ {
		if series.Low(index-k) < price || series.Low(index+k) <= price {
			return false
		}
	}
	return true
}
