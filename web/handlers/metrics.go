package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plotter/events"
)

// Metrics exposes the last decoded value of every variable as Prometheus gauges.
type Metrics struct {
	registry  *prometheus.Registry
	values    *prometheus.GaugeVec
	frames    *prometheus.CounterVec
	lastFrame prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plotter_value",
			Help: "Last decoded value of a plotted variable.",
		}, []string{"graph", "index", "label", "position"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotter_frames_total",
			Help: "Decoded plot records by kind.",
		}, []string{"kind"}),
		lastFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotter_last_frame_time_ms",
			Help: "Firmware clock of the last decoded record.",
		}),
	}
	m.registry.MustRegister(m.values, m.frames, m.lastFrame)
	return m
}

// Observe records one event. Gauges are keyed by graph index and variable position too, titles and
// labels need not be unique. Config events drop gauges of graphs that no longer exist.
func (m *Metrics) Observe(event *events.Event) {
	kind := "delta"
	if event.Config {
		kind = "config"
		m.values.Reset()
	}
	m.frames.WithLabelValues(kind).Inc()
	m.lastFrame.Set(float64(event.Snapshot.Time))

	for g, graph := range event.Snapshot.Graphs {
		for i, label := range graph.Labels {
			if i < len(graph.Values) {
				m.values.WithLabelValues(graph.Title, strconv.Itoa(g), label, strconv.Itoa(i)).Set(graph.Values[i])
			}
		}
	}
}

func (m *Metrics) Run(ctx context.Context, hub *events.EventHub) {
	_, ch, cancel := hub.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			m.Observe(event)
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
