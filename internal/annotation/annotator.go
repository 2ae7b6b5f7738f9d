// Package annotation keeps a registry of named chart markers derived from the
// analysis output. Names encode the bar index, so re-running the analysis over
// the same history produces the same names and redundant markers are skipped.
package annotation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-structure-bot/internal/analysis"
)

// Marker is a single named annotation on the chart.
type Marker struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // "swing" or "bos"
	Label     string    `json:"label"`
	Price     float64   `json:"price"`
	Index     int       `json:"index"`
	Time      time.Time `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// Annotator records markers keyed by name. Writes with an existing name are
// no-ops, which makes per-bar re-annotation cheap.
type Annotator struct {
	mu      sync.RWMutex
	markers map[string]Marker
	logger  zerolog.Logger
}

// NewAnnotator creates an empty annotator.
func NewAnnotator(logger zerolog.Logger) *Annotator {
	return &Annotator{
		markers: make(map[string]Marker),
		logger:  logger.With().Str("component", "Annotator").Logger(),
	}
}

// AnnotateSwing records a marker for a structural swing point. The label is
// HH/LL style text shown on the chart; the name is derived from the bar index.
func (a *Annotator) AnnotateSwing(p analysis.SwingPoint, label string) {
	name := fmt.Sprintf("%s_%d", label, p.Index)
	a.put(Marker{
		Name:  name,
		Kind:  "swing",
		Label: label,
		Price: p.Price,
		Index: p.Index,
		Time:  p.Time,
	})
}

// AnnotateBos records a marker for a break-of-structure event at its
// confirming bar.
func (a *Annotator) AnnotateBos(e analysis.BosEvent, barTime time.Time) {
	label := "BoS"
	if !e.Confirmed {
		label = "BoS?"
	}
	name := fmt.Sprintf("BoS_%d", e.EndIndex)
	a.put(Marker{
		Name:  name,
		Kind:  "bos",
		Label: label,
		Price: e.Level,
		Index: e.EndIndex,
		Time:  barTime,
	})
}

func (a *Annotator) put(m Marker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.markers[m.Name]; exists {
		return
	}
	m.CreatedAt = time.Now().UTC()
	a.markers[m.Name] = m

	a.logger.Debug().
		Str("name", m.Name).
		Str("label", m.Label).
		Float64("price", m.Price).
		Int("index", m.Index).
		Msg("Marker added")
}

// Markers returns all markers ordered by bar index.
func (a *Annotator) Markers() []Marker {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Marker, 0, len(a.markers))
	for _, m := range a.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Count returns the number of recorded markers.
func (a *Annotator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.markers)
}
