package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "readify.log")
	t.Setenv("LOG_FILE", path)

	l, err := NewLogger("readify", "dev")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewLoggerProdSkipsDebug(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	l, err := NewLogger("readify", "prod")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithTraceFillsUnknown(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithTrace(zap.New(core), "", "span-1").Info("hello")

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "unknown", ctx["trace_id"])
	assert.Equal(t, "span-1", ctx["span_id"])
}
