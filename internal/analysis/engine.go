package analysis

import (
	"sync"

	"market-structure-bot/internal/marketdata"

	"github.com/rs/zerolog"
)

// Snapshot is the result of one full structure rescan. Slices are owned by
// the snapshot and safe to hand out to API handlers.
type Snapshot struct {
	BarCount  int          `json:"bar_count"`
	Pivots    []SwingPoint `json:"pivots"`
	Structure []SwingPoint `json:"structure"`
	BosEvents []BosEvent   `json:"bos_events"`
}

// StructureEngine runs the pivot/structure/BoS pipeline for a single
// symbol+timeframe series. Each Update performs a full rescan; the engine
// keeps no incremental state beyond the latest snapshot. One engine instance
// must not be updated from multiple goroutines.
type StructureEngine struct {
	series   *marketdata.Series
	lookback int
	logger   zerolog.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStructureEngine creates an engine over the given series. A lookback
// below 1 falls back to the 5-bar default used across the codebase.
func NewStructureEngine(series *marketdata.Series, lookback int, logger zerolog.Logger) *StructureEngine {
	if lookback < 1 {
		lookback = 5
	}
	return &StructureEngine{
		series:   series,
		lookback: lookback,
		logger: logger.With().
			Str("component", "StructureEngine").
			Str("interval", series.Interval()).
			Logger(),
	}
}

// Update rescans the series and replaces the cached snapshot. Returns the new
// snapshot. With fewer than 2*lookback+1 bars the snapshot is empty rather
// than an error; callers check emptiness before reading structure.
func (e *StructureEngine) Update() Snapshot {
	pivots := DetectPivots(e.series, e.lookback)
	structure := BuildStructure(pivots)
	events := DetectBos(structure, e.series)

	snap := Snapshot{
		BarCount:  e.series.Count(),
		Pivots:    pivots,
		Structure: structure,
		BosEvents: events,
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()

	e.logger.Debug().
		Int("bars", snap.BarCount).
		Int("pivots", len(pivots)).
		Int("structure_points", len(structure)).
		Int("bos_events", len(events)).
		Msg("Structure rescan complete")

	return snap
}

// Snapshot returns the most recent rescan result.
func (e *StructureEngine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Series exposes the underlying bar series.
func (e *StructureEngine) Series() *marketdata.Series {
	return e.series
}

// Lookback returns the configured pivot lookback window.
func (e *StructureEngine) Lookback() int {
	return e.lookback
}
