package models

import (
	"math"
	"strconv"
	"strings"
)

type DataPoint struct {
	x float64
	y float64
}

func (p DataPoint) X() float64 {
	return p.x
}

func (p DataPoint) Y() float64 {
	return p.y
}

// Trace is the listener side history of one plotted line: a variable over time for line graphs,
// an X/Y pair for scatter graphs.
type Trace struct {
	// label is the variable label, "x / y" for scatter pairs.
	label string
	// colour the firmware asked for.
	colour string
	// maxPoints bounds the history, oldest points are dropped first.
	maxPoints int
	points    []DataPoint
}

func NewTrace(label, colour string, maxPoints int) *Trace {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Trace{
		label,
		colour,
		maxPoints,
		make([]DataPoint, 0),
	}
}

func (t *Trace) Label() string {
	return t.label
}

func (t *Trace) Colour() string {
	return t.colour
}

func (t *Trace) Points() []DataPoint {
	return t.points
}

func (t *Trace) Add(x, y float64) {
	t.points = append(t.points, DataPoint{x, y})
	if over := len(t.points) - t.maxPoints; over > 0 {
		t.points = append(t.points[:0], t.points[over:]...)
	}
}

// Latest returns the newest point, zero when empty.
func (t *Trace) Latest() DataPoint {
	if len(t.points) == 0 {
		return DataPoint{}
	}
	return t.points[len(t.points)-1]
}

// Bounds is the box around every finite point. ok is false when there is none.
func (t *Trace) Bounds() (b Bounds, ok bool) {
	b = Bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, p := range t.points {
		if !finite(p.x) || !finite(p.y) {
			continue
		}
		b.MinX, b.MaxX = math.Min(b.MinX, p.x), math.Max(b.MaxX, p.x)
		b.MinY, b.MaxY = math.Min(b.MinY, p.y), math.Max(b.MaxY, p.y)
		ok = true
	}
	return b, ok
}

type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{math.Min(b.MinX, o.MinX), math.Max(b.MaxX, o.MaxX), math.Min(b.MinY, o.MinY), math.Max(b.MaxY, o.MaxY)}
}

// Scaled maps the finite points into a width x height box, y grows downwards.
func (t *Trace) Scaled(b Bounds, width, height float64) []DataPoint {
	out := make([]DataPoint, 0, len(t.points))
	for _, p := range t.points {
		if !finite(p.x) || !finite(p.y) {
			continue
		}
		out = append(out, DataPoint{scale(p.x, b.MinX, b.MaxX, 0, width), scale(p.y, b.MinY, b.MaxY, height, 0)})
	}
	return out
}

// SvgPoints is Scaled in SVG polyline syntax.
func (t *Trace) SvgPoints(b Bounds, width, height float64) string {
	var sb strings.Builder
	for i, p := range t.Scaled(b, width, height) {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(p.x, 'f', 1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.y, 'f', 1, 64))
	}
	return sb.String()
}

// scale maps v from [lo, hi] onto [from, to]; a flat range lands in the middle.
func scale(v, lo, hi, from, to float64) float64 {
	if hi <= lo {
		return (from + to) / 2
	}
	return from + (v-lo)/(hi-lo)*(to-from)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
