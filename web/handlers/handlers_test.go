package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"plotter/events"
	"plotter/protocol"
)

func snapshotEvent(t uint64, temp float64) *events.Event {
	return &events.Event{
		Snapshot: &protocol.Snapshot{
			Time:        t,
			LastUpdated: 5,
			Graphs: []protocol.GraphState{
				{Title: "temp", MaxPoints: 100, Labels: []string{"c"}, Colours: []string{"green"}, Values: []float64{temp}},
				{Title: "pos", Scatter: true, MaxPoints: 100, Labels: []string{"x", "y"}, Colours: []string{"pink", "pink"}, Values: []float64{1, 2}},
			},
		},
		Config:   true,
		Received: time.Now(),
	}
}

func newTestServer(t *testing.T) (*Server, *Dashboard, *Metrics) {
	t.Helper()
	dashboard, err := NewDashboard(zaptest.NewLogger(t))
	require.NoError(t, err)
	metrics := NewMetrics()
	return NewServer(dashboard, metrics.Handler(), zaptest.NewLogger(t)), dashboard, metrics
}

func clientCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == clientIDCookieName {
			return c
		}
	}
	t.Fatal("client id cookie not set")
	return nil
}

func TestIndex(t *testing.T) {
	server, dashboard, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "waiting for config record")
	assert.Contains(t, rec.Body.String(), "no graphs yet")
	clientCookie(t, rec.Result())

	dashboard.Apply(snapshotEvent(10, 21))
	dashboard.Apply(snapshotEvent(20, 23.5))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `id="graph-0"`)
	assert.Contains(t, body, "temp")
	assert.Contains(t, body, "<b>23.5</b>")
	assert.Contains(t, body, "<polyline")
	assert.Contains(t, body, "<circle")
	assert.Contains(t, body, "t=20 ms")

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatic(t *testing.T) {
	server, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#charts")
}

func TestDashboardRebuildsOnLayoutChange(t *testing.T) {
	_, dashboard, _ := newTestServer(t)
	dashboard.Apply(snapshotEvent(10, 21))
	dashboard.Apply(snapshotEvent(20, 22))
	require.Len(t, dashboard.charts, 2)
	assert.Len(t, dashboard.charts[0].Traces()[0].Points(), 2)

	changed := snapshotEvent(30, 23)
	changed.Snapshot.Graphs[0].Colours = []string{"blue"}
	dashboard.Apply(changed)
	assert.Len(t, dashboard.charts[0].Traces()[0].Points(), 1)
	assert.Len(t, dashboard.charts[1].Traces()[0].Points(), 3)

	changed.Snapshot.Graphs = changed.Snapshot.Graphs[:1]
	dashboard.Apply(changed)
	assert.Len(t, dashboard.charts, 1)
}

func toggle(server *Server, key string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/toggle-graph", strings.NewReader(`{"graph":{"key":"`+key+`"}}`))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestToggleGraph(t *testing.T) {
	server, dashboard, _ := newTestServer(t)
	dashboard.Apply(snapshotEvent(10, 21))

	rec := toggle(server, "graph-0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := clientCookie(t, rec.Result())
	assert.Contains(t, rec.Body.String(), "chart hidden")
	assert.True(t, dashboard.Hidden(cookie.Value, "graph-0"))
	assert.False(t, dashboard.Hidden("someone-else", "graph-0"))

	rec = toggle(server, "graph-0", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, dashboard.Hidden(cookie.Value, "graph-0"))
	assert.Contains(t, rec.Body.String(), "<polyline")

	assert.Equal(t, http.StatusNotFound, toggle(server, "graph-9", cookie).Code)

	req := httptest.NewRequest(http.MethodPost, "/toggle-graph", strings.NewReader(`not json`))
	bad := httptest.NewRecorder()
	server.Handler().ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestTickPatchesCharts(t *testing.T) {
	server, dashboard, _ := newTestServer(t)
	dashboard.Apply(snapshotEvent(10, 21))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second/DASHBOARD_FRAMERATE)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/tick", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	server.TickHandler(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="charts"`)
	assert.Contains(t, body, `id="status"`)
}

func TestMetrics(t *testing.T) {
	server, _, metrics := newTestServer(t)
	metrics.Observe(snapshotEvent(10, 23.5))

	delta := snapshotEvent(20, 24)
	delta.Config = false
	metrics.Observe(delta)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `plotter_value{graph="temp",index="0",label="c",position="0"} 24`)
	assert.Contains(t, string(body), `plotter_value{graph="pos",index="1",label="y",position="1"} 2`)
	assert.Contains(t, string(body), `plotter_frames_total{kind="config"} 1`)
	assert.Contains(t, string(body), `plotter_frames_total{kind="delta"} 1`)
	assert.Contains(t, string(body), `plotter_last_frame_time_ms 20`)
}

func TestMetricsRepeatedNames(t *testing.T) {
	server, _, metrics := newTestServer(t)
	metrics.Observe(&events.Event{
		Snapshot: &protocol.Snapshot{
			Time: 1,
			Graphs: []protocol.GraphState{
				{Title: "temp", Labels: []string{"c", "c"}, Values: []float64{1, 2}},
				{Title: "temp", Labels: []string{"c"}, Values: []float64{3}},
			},
		},
		Config: true,
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `plotter_value{graph="temp",index="0",label="c",position="0"} 1`)
	assert.Contains(t, body, `plotter_value{graph="temp",index="0",label="c",position="1"} 2`)
	assert.Contains(t, body, `plotter_value{graph="temp",index="1",label="c",position="0"} 3`)
}

func TestRunStopsOnCancel(t *testing.T) {
	_, dashboard, metrics := newTestServer(t)
	hub := events.NewHub()
	hub.Broadcast(snapshotEvent(10, 21))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dashboard.Run(ctx, hub)
		metrics.Run(ctx, hub)
		close(done)
	}()

	require.Eventually(t, func() bool {
		dashboard.mu.Lock()
		defer dashboard.mu.Unlock()
		return len(dashboard.charts) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
