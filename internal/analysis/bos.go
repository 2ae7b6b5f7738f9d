package analysis

import (
	"market-structure-bot/internal/marketdata"
)

// BosEvent records a break of structure: price taking out a prior structural
// extreme across an intervening opposite-type point. Level is always the
// price of an earlier opposite-type pivot relative to the breaking move.
// Unconfirmed events describe the current bar's close breaching the last
// major pivot; they are transient and recomputed on every update, never
// carried over.
type BosEvent struct {
	Level      float64 `json:"level"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	Confirmed  bool    `json:"confirmed"`
	Bullish    bool    `json:"bullish"`
}

// DetectBos rescans the structure sequence for break-of-structure events.
// Confirmed events come from triples (prev, mid, cur) of alternating points
// where cur exceeds prev in cur's direction. At most one additional
// unconfirmed event is appended when the latest close in the series breaches
// the last major opposite-type pivot.
func DetectBos(structure []SwingPoint, series *marketdata.Series) []BosEvent {
	var events []BosEvent

	for i := 2; i < len(structure); i++ {
		prev := structure[i-2]
		mid := structure[i-1]
		cur := structure[i]

		if cur.Type == SwingHigh && mid.Type == SwingLow && prev.Type == SwingHigh {
			if cur.Price > prev.Price {
				events = append(events, BosEvent{
					Level:      prev.Price,
					StartIndex: prev.Index,
					EndIndex:   cur.Index,
					Confirmed:  true,
					Bullish:    true,
				})
			}
		} else if cur.Type == SwingLow && mid.Type == SwingHigh && prev.Type == SwingLow {
			if cur.Price < prev.Price {
				events = append(events, BosEvent{
					Level:      prev.Price,
					StartIndex: prev.Index,
					EndIndex:   cur.Index,
					Confirmed:  true,
					Bullish:    false,
				})
			}
		}
	}

	if live, ok := detectLiveBos(structure, series); ok {
		events = append(events, live)
	}
	return events
}

// detectLiveBos evaluates the still-open breach of the last major pivot by
// the most recent close. It requires at least two structure points so that an
// opposite-type pivot exists to break.
func detectLiveBos(structure []SwingPoint, series *marketdata.Series) (BosEvent, bool) {
	if len(structure) < 2 || series.Count() == 0 {
		return BosEvent{}, false
	}

	last := structure[len(structure)-1]
	major, ok := lastOfType(structure, last.Type.Opposite())
	if !ok {
		return BosEvent{}, false
	}

	lastBarIndex := series.Count() - 1
	lastClose := series.Close(lastBarIndex)

	bullish := last.Type == SwingLow && lastClose > major.Price
	bearish := last.Type == SwingHigh && lastClose < major.Price
	if !bullish && !bearish {
		return BosEvent{}, false
	}

	return BosEvent{
		Level:      major.Price,
		StartIndex: major.Index,
		EndIndex:   lastBarIndex,
		Confirmed:  false,
		Bullish:    bullish,
	}, true
}

func lastOfType(structure []SwingPoint, t SwingType) (SwingPoint, bool) {
	for i := len(structure) - 1; i >= 0; i-- {
		if structure[i].Type == t {
			return structure[i], true
		}
	}
	return SwingPoint{}, false
}
