package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"

	ds "github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"plotter/events"
	"plotter/models"
	"plotter/web"
)

const (
	CHART_WIDTH  = 300
	CHART_HEIGHT = 100
)

// Dashboard keeps a bounded history of every graph the firmware plots and renders it per client.
type Dashboard struct {
	templates *template.Template
	logger    *zap.Logger

	mu     sync.Mutex
	charts []*models.Chart
	status *statusView
	hidden map[string]map[string]bool // clientID -> chart key -> hidden
}

type graphKeySig struct {
	Graph struct {
		Key string `json:"key"`
	} `json:"graph"`
}

type statusView struct {
	Time        uint64
	LastUpdated uint64
}

type chartView struct {
	Key    string
	Title  string
	Hidden bool
	Width  int
	Height int
	Lines  []lineView
}

type lineView struct {
	Label  string
	Colour string
	Value  string
	Points string
	Dots   []models.DataPoint
}

func NewDashboard(logger *zap.Logger) (dashboard *Dashboard, err error) {
	dashboard = &Dashboard{
		logger: logger,
		hidden: make(map[string]map[string]bool),
	}
	dashboard.templates, err = template.New("").ParseFS(web.Templates, "templates/*.gohtml")
	return dashboard, err
}

func (d *Dashboard) Templates() *template.Template {
	return d.templates
}

func (d *Dashboard) Handlers() map[string]func(w http.ResponseWriter, r *http.Request) {
	return map[string]func(w http.ResponseWriter, r *http.Request){
		"/toggle-graph": d.ToggleGraphHandler,
	}
}

func (d *Dashboard) Data(clientID string) map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"status": d.status,
		"charts": d.views(clientID),
	}
}

// Run feeds hub events into the dashboard until ctx is done.
func (d *Dashboard) Run(ctx context.Context, hub *events.EventHub) {
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
			d.Apply(event)
		}
	}
}

// Apply adds the event's values to the history. A graph whose layout changed starts over.
func (d *Dashboard) Apply(event *events.Event) {
	snapshot := event.Snapshot
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.charts) != len(snapshot.Graphs) {
		d.logger.Info("graph layout changed", zap.Int("graphs", len(snapshot.Graphs)))
		d.charts = make([]*models.Chart, len(snapshot.Graphs))
	}
	for i, state := range snapshot.Graphs {
		if d.charts[i] == nil || !d.charts[i].Matches(state) {
			d.charts[i] = models.NewChart(i, state)
		}
		d.charts[i].Add(snapshot.Time, state.Values)
	}
	d.status = &statusView{snapshot.Time, snapshot.LastUpdated}
}

// OnTick re-renders every chart for the client.
func (d *Dashboard) OnTick(sse *ds.ServerSentEventGenerator, clientID string) error {
	writer := strings.Builder{}

	d.mu.Lock()
	status, views := d.status, d.views(clientID)
	d.mu.Unlock()

	if err := d.templates.ExecuteTemplate(&writer, "status", status); err != nil {
		d.logger.Error("error executing status template", zap.Error(err))
	}
	if err := d.templates.ExecuteTemplate(&writer, "charts", views); err != nil {
		d.logger.Error("error executing charts template", zap.Error(err))
	}

	return sse.PatchElements(writer.String())
}

// ToggleGraphHandler hides or shows one graph for the calling client only.
func (d *Dashboard) ToggleGraphHandler(w http.ResponseWriter, r *http.Request) {
	// Read signals sent from the client
	var sig graphKeySig
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	clientID := getClientID(w, r)

	d.mu.Lock()
	var view *chartView
	for _, chart := range d.charts {
		if chart.Key() != sig.Graph.Key {
			continue
		}
		if d.hidden[clientID] == nil {
			d.hidden[clientID] = make(map[string]bool)
		}
		d.hidden[clientID][chart.Key()] = !d.hidden[clientID][chart.Key()]
		v := d.view(clientID, chart)
		view = &v
		break
	}
	d.mu.Unlock()

	if view == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var buf strings.Builder
	if err := d.templates.ExecuteTemplate(&buf, "chart", view); err != nil {
		d.logger.Error("couldn't execute chart template", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sse := ds.NewSSE(w, r)
	if err := sse.PatchElements(buf.String()); err != nil {
		d.logger.Warn("couldn't patch chart", zap.Error(err))
	}
}

// Hidden reports whether clientID hid the chart with key.
func (d *Dashboard) Hidden(clientID, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hidden[clientID][key]
}

// views must be called with d.mu held.
func (d *Dashboard) views(clientID string) []chartView {
	views := make([]chartView, 0, len(d.charts))
	for _, chart := range d.charts {
		views = append(views, d.view(clientID, chart))
	}
	return views
}

func (d *Dashboard) view(clientID string, chart *models.Chart) chartView {
	view := chartView{
		Key:    chart.Key(),
		Title:  chart.Title(),
		Hidden: d.hidden[clientID][chart.Key()],
		Width:  CHART_WIDTH,
		Height: CHART_HEIGHT,
	}
	bounds, ok := chart.Bounds()
	for _, trace := range chart.Traces() {
		line := lineView{
			Label:  trace.Label(),
			Colour: trace.Colour(),
			Value:  formatLatest(trace, chart.Scatter()),
		}
		if ok && !view.Hidden {
			if chart.Scatter() {
				line.Dots = trace.Scaled(bounds, CHART_WIDTH, CHART_HEIGHT)
			} else {
				line.Points = trace.SvgPoints(bounds, CHART_WIDTH, CHART_HEIGHT)
			}
		}
		view.Lines = append(view.Lines, line)
	}
	return view
}

func formatLatest(trace *models.Trace, scatter bool) string {
	if len(trace.Points()) == 0 {
		return "-"
	}
	latest := trace.Latest()
	if scatter {
		return strconv.FormatFloat(latest.X(), 'g', 6, 64) + ", " + strconv.FormatFloat(latest.Y(), 'g', 6, 64)
	}
	return strconv.FormatFloat(latest.Y(), 'g', 6, 64)
}
