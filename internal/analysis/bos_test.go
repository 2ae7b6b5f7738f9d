package analysis

import (
	"testing"
)

// TestDetectBosBullish tests a confirmed bullish break: a higher high taken
// out across an intervening low
func TestDetectBosBullish(t *testing.T) {
	structure := []SwingPoint{
		point(0, 100, SwingHigh),
		point(2, 90, SwingLow),
		point(4, 105, SwingHigh),
	}
	// Latest close between the low and the old high, so no live event fires.
	highs := []float64{100, 96, 92, 101, 105, 99}
	lows := []float64{95, 91, 90, 94, 100, 97}
	s := seriesFromHL(highs, lows)

	events := DetectBos(structure, s)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	e := events[0]
	if !e.Confirmed || !e.Bullish {
		t.Errorf("Expected confirmed bullish event, got %+v", e)
	}
	if e.Level != 100 || e.StartIndex != 0 || e.EndIndex != 4 {
		t.Errorf("Expected level 100 start 0 end 4, got %+v", e)
	}
}

// TestDetectBosBearish tests a confirmed bearish break
func TestDetectBosBearish(t *testing.T) {
	structure := []SwingPoint{
		point(0, 90, SwingLow),
		point(2, 100, SwingHigh),
		point(4, 85, SwingLow),
	}
	highs := []float64{95, 100, 99, 93, 90, 92}
	lows := []float64{90, 96, 94, 88, 85, 91}
	s := seriesFromHL(highs, lows)

	events := DetectBos(structure, s)

	var confirmed []BosEvent
	for _, e := range events {
		if e.Confirmed {
			confirmed = append(confirmed, e)
		}
	}
	if len(confirmed) != 1 {
		t.Fatalf("Expected 1 confirmed event, got %d", len(confirmed))
	}
	e := confirmed[0]
	if e.Bullish {
		t.Error("Expected bearish event")
	}
	if e.Level != 90 || e.EndIndex != 4 {
		t.Errorf("Expected level 90 end 4, got %+v", e)
	}
}

// TestDetectBosNoBreak tests that an inside higher high below the prior high
// yields nothing
func TestDetectBosNoBreak(t *testing.T) {
	structure := []SwingPoint{
		point(0, 100, SwingHigh),
		point(2, 90, SwingLow),
		point(4, 98, SwingHigh), // below prior high, no break
	}
	highs := []float64{100, 95, 92, 96, 98, 95}
	lows := []float64{96, 91, 90, 92, 95, 92}
	s := seriesFromHL(highs, lows)

	for _, e := range DetectBos(structure, s) {
		if e.Confirmed {
			t.Errorf("No confirmed break expected, got %+v", e)
		}
	}
}

// TestDetectBosLiveUnconfirmed tests the transient close-through event
func TestDetectBosLiveUnconfirmed(t *testing.T) {
	structure := []SwingPoint{
		point(0, 100, SwingHigh),
		point(2, 90, SwingLow),
	}
	// Last close 101 breaches the high at 100 while the last structure point
	// is a low.
	highs := []float64{100, 96, 92, 98, 102}
	lows := []float64{95, 91, 90, 94, 100}
	s := seriesFromHL(highs, lows)

	events := DetectBos(structure, s)

	if len(events) != 1 {
		t.Fatalf("Expected 1 live event, got %d", len(events))
	}
	e := events[0]
	if e.Confirmed {
		t.Error("Live event must be unconfirmed")
	}
	if !e.Bullish || e.Level != 100 || e.EndIndex != 4 {
		t.Errorf("Expected bullish level 100 at last bar 4, got %+v", e)
	}
}

// TestDetectBosLiveRequiresTwoPoints tests the minimum structure guard
func TestDetectBosLiveRequiresTwoPoints(t *testing.T) {
	structure := []SwingPoint{point(0, 100, SwingHigh)}
	highs := []float64{100, 102}
	lows := []float64{95, 99}
	s := seriesFromHL(highs, lows)

	if events := DetectBos(structure, s); len(events) != 0 {
		t.Errorf("Expected no events with a single structure point, got %v", events)
	}
}

func BenchmarkDetectBos(b *testing.B) {
	var structure []SwingPoint
	highs := make([]float64, 600)
	lows := make([]float64, 600)
	for i := 0; i < 600; i++ {
		base := 100 + float64(i%30)
		highs[i] = base + 2
		lows[i] = base - 2
		if i%10 == 0 {
			typ := SwingHigh
			price := base + 2
			if (i/10)%2 == 1 {
				typ = SwingLow
				price = base - 2
			}
			structure = append(structure, point(i, price, typ))
		}
	}
	s := seriesFromHL(highs, lows)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectBos(structure, s)
	}
}
