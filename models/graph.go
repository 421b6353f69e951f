package models

import (
	"errors"
	"fmt"

	"plotter/protocol"
)

const DefaultMaxPoints = 1000

var ErrColourCountMismatch = errors.New("colour count does not match variable count")

// Kind selects how the listener draws a graph.
type Kind uint8

const (
	// Line plots every variable against time.
	Line Kind = iota
	// Scatter plots variable pairs, even positions on X and odd positions on Y.
	Scatter
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Scatter:
		return "scatter"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type Graph struct {
	// title doubles as the listener's window name.
	title string
	kind  Kind
	// maxPoints is how many points the listener keeps, nothing on this side enforces it.
	maxPoints int
	// variables in declaration order.
	variables []*Variable
}

func newGraph(title string, kind Kind, maxPoints int) *Graph {
	return &Graph{
		title,
		kind,
		maxPoints,
		make([]*Variable, 0, 2),
	}
}

func (g *Graph) Title() string {
	return g.title
}

func (g *Graph) Kind() Kind {
	return g.kind
}

func (g *Graph) MaxPoints() int {
	return g.maxPoints
}

func (g *Graph) Len() int {
	return len(g.variables)
}

func (g *Graph) Variables() []*Variable {
	return g.variables
}

// addVariable appends v after the existing variables.
func (g *Graph) addVariable(v *Variable) {
	g.variables = append(g.variables, v)
}

// SetColours overwrites variable colours in order. A line graph needs one colour per variable. A
// scatter graph takes a single colour and only applies it to the first variable, the Y side
// keeps its colour.
func (g *Graph) SetColours(colours []string) error {
	if g.kind == Scatter {
		if len(colours) == 0 || len(g.variables) == 0 {
			return fmt.Errorf("scatter graph %q needs a colour: %w", g.title, ErrColourCountMismatch)
		}
		g.variables[0].SetColour(colours[0])
		return nil
	}

	if len(colours) != len(g.variables) {
		return fmt.Errorf("graph %q has %d variables, got %d colours: %w", g.title, len(g.variables), len(colours), ErrColourCountMismatch)
	}
	for i, v := range g.variables {
		v.SetColour(colours[i])
	}
	return nil
}

// Encode writes the graph record. Config adds everything but the values.
func (g *Graph) Encode(e *protocol.Encoder, config bool) {
	e.BeginObject()

	if config {
		e.Key(protocol.TitleKey)
		e.Text(g.title)
		e.Key(protocol.XvYKey)
		e.Flag(g.kind == Scatter)
		e.Key(protocol.PointsDisplayedKey)
		e.Int(g.maxPoints)
		e.Key(protocol.SizeKey)
		e.Int(len(g.variables))

		e.Key(protocol.LabelsKey)
		e.BeginArray()
		for _, v := range g.variables {
			e.Text(v.Label())
		}
		e.EndArray()

		e.Key(protocol.ColoursKey)
		e.BeginArray()
		for _, v := range g.variables {
			e.Text(v.Colour())
		}
		e.EndArray()
	}

	e.Key(protocol.DataKey)
	e.BeginArray()
	for _, v := range g.variables {
		e.Float(v.Value())
	}
	e.EndArray()

	e.EndObject()
}

// Series describes one line handed to a line graph up front.
type Series struct {
	Label  string
	Ref    Reader
	Colour string
}

// LineGraph plots its variables against time.
type LineGraph struct {
	*Graph
}

func NewLineGraph(title string, maxPoints int) *LineGraph {
	return &LineGraph{newGraph(title, Line, maxPoints)}
}

// Line adds a variable. Without a colour it takes the palette entry for its position.
func (g *LineGraph) Line(label string, ref Reader, colour ...string) *LineGraph {
	g.addVariable(NewVariable(label, ref, pickColour(colour, g.Len())))
	return g
}

// ScatterGraph plots Y against X. It is always built with a pair so it never holds an odd
// number of variables.
type ScatterGraph struct {
	*Graph
}

func NewScatterGraph(title string, maxPoints int, labelX string, x Reader, labelY string, y Reader, colour ...string) *ScatterGraph {
	g := &ScatterGraph{newGraph(title, Scatter, maxPoints)}
	return g.Scatter(labelX, x, labelY, y, colour...)
}

// Scatter adds an X/Y pair, both sides get the same colour.
func (g *ScatterGraph) Scatter(labelX string, x Reader, labelY string, y Reader, colour ...string) *ScatterGraph {
	c := pickColour(colour, g.Len()/2)
	g.addVariable(NewVariable(labelX, x, c))
	g.addVariable(NewVariable(labelY, y, c))
	return g
}
