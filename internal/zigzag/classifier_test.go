package zigzag

import (
	"math"
	"testing"
	"time"

	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/marketdata"
)

// TestClassifyPointsAlternation tests high/low reconstruction from a real
// filter run over a rise-then-fall series
func TestClassifyPointsAlternation(t *testing.T) {
	lows := []float64{1.0, 1.1, 1.2, 1.3, 1.4, 1.3, 1.2, 1.1, 1.0, 0.9}
	highs := []float64{1.1, 1.2, 1.3, 1.4, 1.5, 1.4, 1.3, 1.2, 1.1, 1.0}
	s := seriesFromHL(highs, lows)

	f := NewFilter(s, Params{Depth: 3, Deviation: 5, Backstep: 1}, 0.01)
	runFilter(f, 10)

	cutoff := s.OpenTime(9)
	points := ClassifyPoints(f.Values(), s, cutoff, 0.0001)

	if len(points) != 2 {
		t.Fatalf("Expected 2 classified points, got %d", len(points))
	}
	if points[0].Type != analysis.SwingHigh || points[0].Price != 1.5 {
		t.Errorf("Expected first point high 1.5, got %s %v", points[0].Type, points[0].Price)
	}
	if points[1].Type != analysis.SwingLow || points[1].Price != 0.9 {
		t.Errorf("Expected second point low 0.9, got %s %v", points[1].Type, points[1].Price)
	}
}

// TestClassifyPointsCutoff tests that points after the cutoff are excluded
func TestClassifyPointsCutoff(t *testing.T) {
	lows := []float64{1.0, 1.1, 1.2, 1.3, 1.4, 1.3, 1.2, 1.1, 1.0, 0.9}
	highs := []float64{1.1, 1.2, 1.3, 1.4, 1.5, 1.4, 1.3, 1.2, 1.1, 1.0}
	s := seriesFromHL(highs, lows)

	f := NewFilter(s, Params{Depth: 3, Deviation: 5, Backstep: 1}, 0.01)
	runFilter(f, 10)

	// Cut off before the final trough bar: only the peak high remains, and a
	// single point falls back to the bar-extremum heuristic.
	cutoff := s.OpenTime(5)
	points := ClassifyPoints(f.Values(), s, cutoff, 0.0001)

	if len(points) != 1 {
		t.Fatalf("Expected 1 classified point before cutoff, got %d", len(points))
	}
	if points[0].Type != analysis.SwingHigh || points[0].Index != 4 {
		t.Errorf("Expected high at index 4, got %s at %d", points[0].Type, points[0].Index)
	}
}

// TestClassifySinglePointAmbiguous tests that an unclassifiable single point
// is dropped rather than guessed
func TestClassifySinglePointAmbiguous(t *testing.T) {
	// A flat bar: the point price matches both the high and the low.
	s := marketdata.NewSeries("EURUSDT", "1h")
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Append(marketdata.Bar{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     1.2, High: 1.2, Low: 1.2, Close: 1.2,
		})
	}
	values := []float64{math.NaN(), 1.2, math.NaN()}

	points := ClassifyPoints(values, s, s.OpenTime(2), 0.0001)
	if points != nil {
		t.Errorf("Ambiguous single point should be dropped, got %v", points)
	}
}

// TestClassifyPointsEmpty tests the guard clauses
func TestClassifyPointsEmpty(t *testing.T) {
	s := seriesFromHL([]float64{1}, []float64{0})

	if points := ClassifyPoints(nil, s, s.OpenTime(0), 0.0001); points != nil {
		t.Errorf("Expected nil for empty values, got %v", points)
	}
	if points := ClassifyPoints([]float64{math.NaN()}, nil, time.Time{}, 0.0001); points != nil {
		t.Errorf("Expected nil for nil series, got %v", points)
	}
}

// TestLastOfType tests backward scanning by type
func TestLastOfType(t *testing.T) {
	points := []analysis.SwingPoint{
		{Index: 1, Price: 1.5, Type: analysis.SwingHigh},
		{Index: 3, Price: 1.2, Type: analysis.SwingLow},
		{Index: 5, Price: 1.6, Type: analysis.SwingHigh},
	}

	high, ok := LastOfType(points, analysis.SwingHigh)
	if !ok || high.Index != 5 {
		t.Errorf("Expected most recent high at index 5, got %+v (ok=%v)", high, ok)
	}
	low, ok := LastOfType(points, analysis.SwingLow)
	if !ok || low.Index != 3 {
		t.Errorf("Expected low at index 3, got %+v (ok=%v)", low, ok)
	}
	if _, ok := LastOfType(nil, analysis.SwingLow); ok {
		t.Error("Expected no match on empty slice")
	}
}
