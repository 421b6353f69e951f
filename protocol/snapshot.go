package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrNoConfig       = errors.New("delta frame before any config frame")
	ErrLayoutMismatch = errors.New("delta frame does not match known layout")
)

// GraphState is the listener side view of one graph.
type GraphState struct {
	Title     string
	Scatter   bool
	MaxPoints int
	Labels    []string
	Colours   []string
	Values    []float64
}

// Snapshot is the full graph state after applying a frame.
type Snapshot struct {
	Time        uint64
	LastUpdated uint64
	Graphs      []GraphState
}

// Tracker merges config and delta frames into snapshots. Between config frames the layout is
// whatever the last config frame said, so graphs added or recoloured since then only show up
// after the next config frame.
type Tracker struct {
	layout *Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// HasConfig reports whether a config frame has been seen.
func (t *Tracker) HasConfig() bool {
	return t.layout != nil
}

// Apply folds frame into the tracked state and returns a snapshot that is safe to share.
func (t *Tracker) Apply(frame *Frame) (*Snapshot, error) {
	if frame.IsConfig() {
		return t.applyConfig(frame)
	}
	if t.layout == nil {
		return nil, ErrNoConfig
	}
	if len(frame.Graphs) != len(t.layout.Graphs) {
		return nil, fmt.Errorf("got %d graphs, expected %d: %w", len(frame.Graphs), len(t.layout.Graphs), ErrLayoutMismatch)
	}
	for i, record := range frame.Graphs {
		if len(record.Data) != len(t.layout.Graphs[i].Labels) {
			return nil, fmt.Errorf("graph %d has %d values, expected %d: %w", i, len(record.Data), len(t.layout.Graphs[i].Labels), ErrLayoutMismatch)
		}
	}

	t.layout.Time = frame.Time
	for i, record := range frame.Graphs {
		t.layout.Graphs[i].Values = values(record.Data)
	}
	return t.layout.clone(), nil
}

func (t *Tracker) applyConfig(frame *Frame) (*Snapshot, error) {
	if *frame.NumGraphs != len(frame.Graphs) {
		return nil, fmt.Errorf("config says %d graphs, carries %d: %w", *frame.NumGraphs, len(frame.Graphs), ErrMalformedFrame)
	}

	snapshot := &Snapshot{
		Time:   frame.Time,
		Graphs: make([]GraphState, len(frame.Graphs)),
	}
	if frame.LastUpdated != nil {
		snapshot.LastUpdated = *frame.LastUpdated
	}
	for i, record := range frame.Graphs {
		if !record.IsConfig() {
			return nil, fmt.Errorf("graph %d missing config in config frame: %w", i, ErrMalformedFrame)
		}
		if len(record.Labels) != record.Size || len(record.Colours) != record.Size || len(record.Data) != record.Size {
			return nil, fmt.Errorf("graph %d size %d disagrees with its arrays: %w", i, record.Size, ErrMalformedFrame)
		}
		snapshot.Graphs[i] = GraphState{
			Title:     record.Title,
			Scatter:   *record.XvY != 0,
			MaxPoints: record.MaxPoints,
			Labels:    record.Labels,
			Colours:   record.Colours,
			Values:    values(record.Data),
		}
	}

	t.layout = snapshot
	return snapshot.clone(), nil
}

func values(data []Value) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Time:        s.Time,
		LastUpdated: s.LastUpdated,
		Graphs:      make([]GraphState, len(s.Graphs)),
	}
	for i, g := range s.Graphs {
		c.Graphs[i] = GraphState{
			Title:     g.Title,
			Scatter:   g.Scatter,
			MaxPoints: g.MaxPoints,
			Labels:    append([]string(nil), g.Labels...),
			Colours:   append([]string(nil), g.Colours...),
			Values:    append([]float64(nil), g.Values...),
		}
	}
	return c
}
