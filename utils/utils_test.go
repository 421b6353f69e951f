package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAvailableFilename(t *testing.T) {
	dir := t.TempDir()

	first := NextAvailableFilename(dir, "RAWLOG", ".log")
	assert.Equal(t, filepath.Join(dir, "RAWLOG.log"), first)
	require.NoError(t, os.WriteFile(first, nil, 0o644))

	second := NextAvailableFilename(dir, "RAWLOG", ".log")
	assert.Equal(t, filepath.Join(dir, "RAWLOG_1.log"), second)
	require.NoError(t, os.WriteFile(second, nil, 0o644))

	assert.Equal(t, filepath.Join(dir, "RAWLOG_2.log"), NextAvailableFilename(dir, "RAWLOG", ".log"))
}

func TestBoolToFloat(t *testing.T) {
	assert.Equal(t, 1.0, BoolToFloat(true))
	assert.Equal(t, 0.0, BoolToFloat(false))
}

func TestMonotonicClock(t *testing.T) {
	clock := NewMonotonicClock()
	before := clock.Millis()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, clock.Millis(), before+5)
}
