package export

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/eryajf/promwrite"
	"go.uber.org/zap"

	"plotter/events"
)

const (
	METRIC_NAME   = "plotter_value"
	WRITE_TIMEOUT = 15 * time.Second
)

// RemoteWriter pushes the latest decoded values to a Prometheus remote write endpoint.
type RemoteWriter struct {
	client   *promwrite.Client
	interval time.Duration
	instance string
	logger   *zap.Logger

	mu      sync.Mutex
	latest  *events.Event
	written *events.Event
}

func NewRemoteWriter(url string, interval time.Duration, instance string, logger *zap.Logger) *RemoteWriter {
	return &RemoteWriter{
		client:   promwrite.NewClient(url),
		interval: interval,
		instance: instance,
		logger:   logger,
	}
}

// Run pushes once per interval, skipping intervals without a new event, until ctx is done.
// Failed pushes are logged and retried with the next event.
func (w *RemoteWriter) Run(ctx context.Context, hub *events.EventHub) {
	_, ch, cancel := hub.Subscribe()
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			w.mu.Lock()
			w.latest = event
			w.mu.Unlock()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.Warn("remote write", zap.Error(err))
			}
		}
	}
}

// Flush writes the latest event if it has not been written yet.
func (w *RemoteWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	event := w.latest
	w.mu.Unlock()
	if event == nil || event == w.written {
		return nil
	}

	series := ToTimeSeries(event, w.instance)
	if len(series) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, WRITE_TIMEOUT)
	defer cancel()
	if _, err := w.client.Write(ctx, &promwrite.WriteRequest{TimeSeries: series}); err != nil {
		return fmt.Errorf("writing time series failed: %w", err)
	}
	w.written = event
	w.logger.Debug("remote write", zap.Int("series", len(series)))
	return nil
}

// ToTimeSeries converts every finite value of event into one sample. Graph index and variable
// position keep series apart when titles or labels repeat. Labels are emitted sorted by name.
func ToTimeSeries(event *events.Event, instance string) []promwrite.TimeSeries {
	var result []promwrite.TimeSeries
	for g, graph := range event.Snapshot.Graphs {
		for i, label := range graph.Labels {
			if i >= len(graph.Values) {
				break
			}
			value := graph.Values[i]
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			axis := "y"
			if graph.Scatter && i%2 == 0 {
				axis = "x"
			}
			result = append(result, promwrite.TimeSeries{
				Labels: []promwrite.Label{
					{Name: "__name__", Value: METRIC_NAME},
					{Name: "axis", Value: axis},
					{Name: "graph", Value: graph.Title},
					{Name: "index", Value: strconv.Itoa(g)},
					{Name: "instance", Value: instance},
					{Name: "label", Value: label},
					{Name: "position", Value: strconv.Itoa(i)},
				},
				Sample: promwrite.Sample{
					Time:  event.Received,
					Value: value,
				},
			})
		}
	}
	return result
}
