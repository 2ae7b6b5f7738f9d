package zigzag

import (
	"math"
	"time"

	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/marketdata"
)

// minPointsToClassify is the minimum number of raw pivot values needed for
// alternation-based classification. Below this the classifier falls back to
// the single-point heuristic.
const minPointsToClassify = 2

// ClassifyPoints reconstructs high/low labels for the filter's raw pivot
// values up to and including the latest bar at or before cutoff, returning
// points oldest first. The filter output carries no type tag, so labels are
// inferred: the first point is a high iff it is priced above the second, and
// every later point takes the type opposite its predecessor (the filter
// guarantees alternation, so no re-validation against raw prices is done
// past the first pair).
//
// With a single point the bar's own high/low decides within half a pip of
// tolerance; if that is ambiguous the point is dropped rather than guessed.
// Callers wanting "the most recent low before cutoff" take
// the last returned point of type low.
func ClassifyPoints(values []float64, series *marketdata.Series, cutoff time.Time, pipSize float64) []analysis.SwingPoint {
	if series == nil || series.Count() == 0 || len(values) == 0 {
		return nil
	}

	cutoffIndex := -1
	for i := series.Count() - 1; i >= 0; i-- {
		if !series.OpenTime(i).After(cutoff) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex < 0 {
		return nil
	}
	if cutoffIndex >= len(values) {
		cutoffIndex = len(values) - 1
	}

	type rawPoint struct {
		price float64
		time  time.Time
		index int
	}
	var raw []rawPoint
	for i := cutoffIndex; i >= 0; i-- {
		v := values[i]
		if !math.IsNaN(v) && v != 0 {
			raw = append(raw, rawPoint{price: v, time: series.OpenTime(i), index: i})
		}
	}
	if len(raw) == 0 {
		return nil
	}

	// Reverse into chronological order.
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}

	if len(raw) < minPointsToClassify {
		p := raw[0]
		bar := series.Bar(p.index)
		tol := pipSize * 0.5
		highGuess := math.Abs(p.price-bar.High) < tol && p.price > bar.Low+tol
		lowGuess := math.Abs(p.price-bar.Low) < tol && p.price < bar.High-tol
		switch {
		case highGuess && !lowGuess:
			return []analysis.SwingPoint{{Index: p.index, Time: p.time, Price: p.price, Type: analysis.SwingHigh}}
		case lowGuess && !highGuess:
			return []analysis.SwingPoint{{Index: p.index, Time: p.time, Price: p.price, Type: analysis.SwingLow}}
		default:
			return nil
		}
	}

	points := make([]analysis.SwingPoint, 0, len(raw))
	firstIsHigh := raw[0].price > raw[1].price
	for i, p := range raw {
		var t analysis.SwingType
		if i == 0 {
			t = analysis.SwingLow
			if firstIsHigh {
				t = analysis.SwingHigh
			}
		} else {
			t = points[i-1].Type.Opposite()
		}
		points = append(points, analysis.SwingPoint{
			Index: p.index,
			Time:  p.time,
			Price: p.price,
			Type:  t,
		})
	}
	return points
}

// LastOfType returns the most recent point of the given type, scanning the
// classified slice backwards.
func LastOfType(points []analysis.SwingPoint, t analysis.SwingType) (analysis.SwingPoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Type == t {
			return points[i], true
		}
	}
	return analysis.SwingPoint{}, false
}
