package store

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"plotter/models"
	"plotter/protocol"
	"plotter/utils"
)

var ErrOutOfRange = errors.New("graph index out of range")

// Registry owns every graph and writes them out on each Plot call. It is meant to be driven from
// a single control loop and does no locking.
type Registry struct {
	out    io.Writer
	clock  utils.Clock
	logger *zap.Logger

	// graphs in insertion order.
	graphs []*models.Graph
	// lastUpdated is the clock reading of the last structural or colour change.
	lastUpdated uint64
	// counter selects config records, a record carries config whenever it is 0.
	counter int
	// configInterval is how many records share one config record.
	configInterval int
	// resyncOnChange resets counter on every change so the next record carries config.
	resyncOnChange bool

	encoder *protocol.Encoder
}

type Option func(*Registry)

func WithClock(clock utils.Clock) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfigInterval overrides protocol.ConfigInterval. Values below 1 are ignored.
func WithConfigInterval(interval int) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.configInterval = interval
		}
	}
}

// WithResyncOnChange makes add, remove and colour changes schedule a config record for the next
// Plot call instead of waiting for the interval to wrap. Listeners only see config records more
// often.
func WithResyncOnChange(resync bool) Option {
	return func(r *Registry) {
		r.resyncOnChange = resync
	}
}

func NewRegistry(out io.Writer, opts ...Option) *Registry {
	r := &Registry{
		out:            out,
		clock:          utils.NewMonotonicClock(),
		logger:         zap.NewNop(),
		graphs:         make([]*models.Graph, 0, 4),
		configInterval: protocol.ConfigInterval,
		encoder:        protocol.NewEncoder(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastUpdated = r.clock.Millis()
	return r
}

// Begin stamps the registry as updated now. Call it once the transport is up so the listener
// sees a fresh last-updated time.
func (r *Registry) Begin() {
	r.lastUpdated = r.clock.Millis()
	r.logger.Debug("registry started", zap.Uint64("lastUpdated", r.lastUpdated))
}

func (r *Registry) Len() int {
	return len(r.graphs)
}

// Graph returns the graph at index in insertion order.
func (r *Registry) Graph(index int) (*models.Graph, bool) {
	if index < 0 || index >= len(r.graphs) {
		return nil, false
	}
	return r.graphs[index], true
}

func (r *Registry) LastUpdated() uint64 {
	return r.lastUpdated
}

// ConfigDue reports whether the next Plot call carries the full configuration.
func (r *Registry) ConfigDue() bool {
	return r.counter == 0
}

// AddGraph appends g after the existing graphs.
func (r *Registry) AddGraph(g *models.Graph) {
	r.graphs = append(r.graphs, g)
	r.touch()
	r.logger.Debug("graph added",
		zap.String("title", g.Title()),
		zap.Stringer("kind", g.Kind()),
		zap.Int("variables", g.Len()),
		zap.Int("graphs", len(r.graphs)))
}

// AddLineGraph adds a graph of series against time. It may be empty, lines can be added to the
// returned graph later.
func (r *Registry) AddLineGraph(title string, maxPoints int, series ...models.Series) *models.LineGraph {
	g := models.NewLineGraph(title, maxPoints)
	for _, s := range series {
		g.Line(s.Label, s.Ref, s.Colour)
	}
	r.AddGraph(g.Graph)
	return g
}

// AddScatterGraph adds a graph of y against x.
func (r *Registry) AddScatterGraph(title string, maxPoints int, labelX string, x models.Reader, labelY string, y models.Reader) *models.ScatterGraph {
	g := models.NewScatterGraph(title, maxPoints, labelX, x, labelY, y)
	r.AddGraph(g.Graph)
	return g
}

// Remove drops the graph at index, the rest keep their order.
func (r *Registry) Remove(index int) error {
	if index < 0 || index >= len(r.graphs) {
		return fmt.Errorf("remove graph %d of %d: %w", index, len(r.graphs), ErrOutOfRange)
	}

	removed := r.graphs[index]
	copy(r.graphs[index:], r.graphs[index+1:])
	r.graphs[len(r.graphs)-1] = nil
	r.graphs = r.graphs[:len(r.graphs)-1]
	r.touch()

	r.logger.Debug("graph removed",
		zap.Int("index", index),
		zap.String("title", removed.Title()),
		zap.Int("graphs", len(r.graphs)))
	return nil
}

// SetColour recolours the graph at index, see models.Graph.SetColours for the arity rules.
func (r *Registry) SetColour(index int, colours ...string) error {
	g, ok := r.Graph(index)
	if !ok {
		return fmt.Errorf("set colour of graph %d of %d: %w", index, len(r.graphs), ErrOutOfRange)
	}
	if err := g.SetColours(colours); err != nil {
		return err
	}
	r.touch()
	r.logger.Debug("graph recoloured", zap.Int("index", index), zap.Strings("colours", colours))
	return nil
}

// Plot writes one record with the current value of every variable. Every configInterval-th call,
// starting with the first, the record also carries the full configuration. The counter advances
// even when the write fails.
func (r *Registry) Plot() error {
	config := r.counter == 0

	e := r.encoder
	e.Reset()
	e.BeginObject()
	e.Key(protocol.TimeKey)
	e.Uint(r.clock.Millis())

	if config {
		e.Key(protocol.NumGraphKey)
		e.Int(len(r.graphs))
		e.Key(protocol.LastUpdatedKey)
		e.Uint(r.lastUpdated)
	}

	e.Key(protocol.GraphsKey)
	e.BeginArray()
	for _, g := range r.graphs {
		g.Encode(e, config)
	}
	e.EndArray()
	e.EndObject()
	e.Terminate()

	r.counter++
	if r.counter >= r.configInterval {
		r.counter = 0
	}

	if _, err := e.WriteTo(r.out); err != nil {
		r.logger.Warn("couldn't write record", zap.Bool("config", config), zap.Error(err))
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close releases every graph. Closing an empty registry does nothing and the registry can be
// used again afterwards.
func (r *Registry) Close() error {
	if len(r.graphs) == 0 {
		return nil
	}
	clear(r.graphs)
	r.graphs = r.graphs[:0]
	r.touch()
	r.logger.Debug("registry closed")
	return nil
}

func (r *Registry) touch() {
	r.lastUpdated = r.clock.Millis()
	if r.resyncOnChange {
		r.counter = 0
	}
}
