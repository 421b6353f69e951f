package protocol

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	configRecord = `{"t":1200,"ng":2,"lu":1000,"g":[` +
		`{"t":"temp","xvy":0,"pd":1000,"sz":1,"l":["c"],"c":["green"],"d":[23.50000000]},` +
		`{"t":"pos","xvy":1,"pd":500,"sz":2,"l":["x","y"],"c":["pink","pink"],"d":[1.00000000,-2.00000000]}` +
		`]}#` + "\r\n"
	deltaRecord = `{"t":1250,"g":[{"d":[24.00000000]},{"d":[3.00000000,null]}]}#` + "\r\n"
)

func TestEncoderNesting(t *testing.T) {
	e := NewEncoder()
	e.BeginObject()
	e.Key("a")
	e.Uint(1)
	e.Key("b")
	e.BeginArray()
	e.Float(0.5)
	e.Float(math.Inf(1))
	e.BeginObject()
	e.Key("c")
	e.Text("x")
	e.EndObject()
	e.EndArray()
	e.Key("d")
	e.Flag(true)
	e.EndObject()
	e.Terminate()

	assert.Equal(t, `{"a":1,"b":[0.50000000,null,{"c":"x"}],"d":1}#`+"\r\n", e.String())

	var out strings.Builder
	n, err := e.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(e.Bytes())), n)

	e.Reset()
	e.BeginArray()
	e.Int(-4)
	e.EndArray()
	assert.Equal(t, `[-4]`, e.String())
}

func TestDecoderConfigAndDelta(t *testing.T) {
	d := NewDecoder(strings.NewReader(configRecord + deltaRecord))

	frame, err := d.Next()
	require.NoError(t, err)
	require.True(t, frame.IsConfig())
	assert.Equal(t, uint64(1200), frame.Time)
	assert.Equal(t, 2, *frame.NumGraphs)
	assert.Equal(t, uint64(1000), *frame.LastUpdated)
	require.Len(t, frame.Graphs, 2)
	assert.True(t, frame.Graphs[0].IsConfig())
	assert.Equal(t, "temp", frame.Graphs[0].Title)
	assert.Equal(t, []string{"x", "y"}, frame.Graphs[1].Labels)
	assert.Equal(t, 1, *frame.Graphs[1].XvY)

	frame, err = d.Next()
	require.NoError(t, err)
	assert.False(t, frame.IsConfig())
	assert.False(t, frame.Graphs[0].IsConfig())
	assert.Equal(t, Value(24), frame.Graphs[0].Data[0])
	assert.True(t, math.IsNaN(float64(frame.Graphs[1].Data[1])))

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderResync(t *testing.T) {
	stream := "\x00\xffboot noise" + deltaRecord +
		`{"t":1300,"g":[{"d":[1.0` + // cut short by a reset, trailer lost
		`{"t":1350,"g":[{"d":[5.00000000]},{"d":[6.00000000,7.00000000]}]}#` + "\r\n" +
		`garbage#` +
		deltaRecord +
		`{"t":1400,"g":[{"d":[1.0` // trailing partial

	d := NewDecoder(strings.NewReader(stream))

	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), frame.Time)

	frame, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1350), frame.Time)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)

	frame, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), frame.Time)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderSkipsGraphTitleAsRecordStart(t *testing.T) {
	d := NewDecoder(strings.NewReader(configRecord))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Len(t, frame.Graphs, 2)
}

func TestDecoderFrameTooLarge(t *testing.T) {
	huge := `{"t":1,"g":[{"d":[` + strings.Repeat("1.00000000,", MAX_RECORD_SIZE/10) + `1]}]}#`
	d := NewDecoder(strings.NewReader(huge + deltaRecord))

	_, err := d.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), frame.Time)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("port unplugged")
}

func TestDecoderPassesReadErrors(t *testing.T) {
	_, err := NewDecoder(failingReader{}).Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, ErrMalformedFrame)
}

func TestTrackerDeltaBeforeConfig(t *testing.T) {
	d := NewDecoder(strings.NewReader(deltaRecord))
	frame, err := d.Next()
	require.NoError(t, err)

	tracker := NewTracker()
	_, err = tracker.Apply(frame)
	assert.ErrorIs(t, err, ErrNoConfig)
	assert.False(t, tracker.HasConfig())
}

func TestTrackerMergesDelta(t *testing.T) {
	d := NewDecoder(strings.NewReader(configRecord + deltaRecord))
	tracker := NewTracker()

	frame, err := d.Next()
	require.NoError(t, err)
	first, err := tracker.Apply(frame)
	require.NoError(t, err)
	assert.True(t, tracker.HasConfig())
	assert.Equal(t, uint64(1000), first.LastUpdated)
	require.Len(t, first.Graphs, 2)
	assert.Equal(t, "temp", first.Graphs[0].Title)
	assert.False(t, first.Graphs[0].Scatter)
	assert.True(t, first.Graphs[1].Scatter)
	assert.Equal(t, []float64{23.5}, first.Graphs[0].Values)

	frame, err = d.Next()
	require.NoError(t, err)
	second, err := tracker.Apply(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), second.Time)
	assert.Equal(t, "temp", second.Graphs[0].Title)
	assert.Equal(t, []string{"pink", "pink"}, second.Graphs[1].Colours)
	assert.Equal(t, []float64{24}, second.Graphs[0].Values)
	assert.Equal(t, 3.0, second.Graphs[1].Values[0])

	// earlier snapshots are not touched by later frames
	assert.Equal(t, []float64{23.5}, first.Graphs[0].Values)
}

func TestTrackerLayoutMismatch(t *testing.T) {
	d := NewDecoder(strings.NewReader(configRecord +
		`{"t":1,"g":[{"d":[1.00000000]}]}#` +
		`{"t":2,"g":[{"d":[1.00000000,2.00000000]},{"d":[1.00000000,2.00000000]}]}#`))
	tracker := NewTracker()

	frame, err := d.Next()
	require.NoError(t, err)
	_, err = tracker.Apply(frame)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		frame, err = d.Next()
		require.NoError(t, err)
		_, err = tracker.Apply(frame)
		assert.ErrorIs(t, err, ErrLayoutMismatch)
	}
}

func TestTrackerRejectsInconsistentConfig(t *testing.T) {
	d := NewDecoder(strings.NewReader(
		`{"t":1,"ng":2,"lu":0,"g":[{"t":"a","xvy":0,"pd":10,"sz":1,"l":["a"],"c":["green"],"d":[1.00000000]}]}#` +
			`{"t":1,"ng":1,"lu":0,"g":[{"t":"a","xvy":0,"pd":10,"sz":2,"l":["a"],"c":["green"],"d":[1.00000000]}]}#`))
	tracker := NewTracker()

	for i := 0; i < 2; i++ {
		frame, err := d.Next()
		require.NoError(t, err)
		_, err = tracker.Apply(frame)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	}
	assert.False(t, tracker.HasConfig())
}
