package logger

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("Error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithSink("INFO", "json", zapcore.AddSync(&buf)).Sugar().Named("delivery")

	l.Debugw("hidden")
	l.Infow("Alarm delivered", "channel", "background")
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "delivery", entry["component"])
	assert.Equal(t, "Alarm delivered", entry["msg"])
	assert.Equal(t, "background", entry["channel"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithSink("DEBUG", "CONSOLE", zapcore.AddSync(&buf)).Sugar()

	l.Debug("armed")
	assert.Contains(t, buf.String(), " | ")
	assert.Contains(t, buf.String(), "armed")
}
