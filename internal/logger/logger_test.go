package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/h2client/v2/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestLoggerEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogLevelDebug)

	l.Info("stream opened", LogFields{"stream_id": 1, "method": "GET"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "stream opened", entries[0]["message"])
	assert.Equal(t, float64(1), entries[0]["stream_id"])
	assert.Equal(t, "GET", entries[0]["method"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogLevelWarning)

	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	l.Error("also kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestLoggerMultipleFieldSets(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogLevelDebug)

	l.Debug("merged", LogFields{"a": "1"}, LogFields{"b": "2"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0]["a"])
	assert.Equal(t, "2", entries[0]["b"])
}

func TestNewWithFileTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	l, err := New(&config.LoggingConfig{LogLevel: config.LogLevelInfo, Target: path})
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestDiscardLoggerIsSilent(t *testing.T) {
	l := NewDiscard()
	l.Error("nothing happens")
	assert.NoError(t, l.Close())
}
