package models

import (
	"fmt"
	"slices"

	"plotter/protocol"
)

// Chart is the listener side display of one graph.
type Chart struct {
	// key identifies the chart in the page, derived from its position.
	key string
	// state is the layout the traces were built for.
	state protocol.GraphState
	// traces to display in this chart
	traces []*Trace
}

// NewChart builds empty traces for state: one per variable for line graphs, one per X/Y pair for
// scatter graphs.
func NewChart(index int, state protocol.GraphState) *Chart {
	c := &Chart{
		fmt.Sprintf("graph-%d", index),
		state,
		nil,
	}
	if state.Scatter {
		for i := 0; i+1 < len(state.Labels); i += 2 {
			c.traces = append(c.traces, NewTrace(state.Labels[i]+" / "+state.Labels[i+1], colourAt(state.Colours, i), state.MaxPoints))
		}
	} else {
		for i, label := range state.Labels {
			c.traces = append(c.traces, NewTrace(label, colourAt(state.Colours, i), state.MaxPoints))
		}
	}
	return c
}

func (c *Chart) Key() string {
	return c.key
}

func (c *Chart) Title() string {
	return c.state.Title
}

func (c *Chart) Scatter() bool {
	return c.state.Scatter
}

func (c *Chart) Traces() []*Trace {
	return c.traces
}

// Matches reports whether state has the layout this chart was built for.
func (c *Chart) Matches(state protocol.GraphState) bool {
	return c.state.Title == state.Title &&
		c.state.Scatter == state.Scatter &&
		c.state.MaxPoints == state.MaxPoints &&
		slices.Equal(c.state.Labels, state.Labels) &&
		slices.Equal(c.state.Colours, state.Colours)
}

// Add appends one sample per trace. Line traces use timeMs as X.
func (c *Chart) Add(timeMs uint64, values []float64) {
	if c.state.Scatter {
		for i, trace := range c.traces {
			if 2*i+1 < len(values) {
				trace.Add(values[2*i], values[2*i+1])
			}
		}
		return
	}
	for i, trace := range c.traces {
		if i < len(values) {
			trace.Add(float64(timeMs), values[i])
		}
	}
}

// Bounds covers every trace so lines of one chart share their axes.
func (c *Chart) Bounds() (Bounds, bool) {
	var (
		all   Bounds
		found bool
	)
	for _, trace := range c.traces {
		b, ok := trace.Bounds()
		if !ok {
			continue
		}
		if !found {
			all, found = b, true
			continue
		}
		all = all.Union(b)
	}
	return all, found
}

func colourAt(colours []string, i int) string {
	if i < len(colours) {
		return colours[i]
	}
	return DefaultColour(i)
}
