package zaplogger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/readify/internal/observability"
)

func TestWrapForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With(observability.F("component", "orders"))

	l.Warn("order_expired", observability.F("order_id", "o1"), observability.F("error", errors.New("late")))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	assert.Equal(t, "order_expired", e.Message)
	ctx := e.ContextMap()
	assert.Equal(t, "orders", ctx["component"])
	assert.Equal(t, "o1", ctx["order_id"])
	assert.Equal(t, "late", ctx["error"])
}

func TestWrapNilIsNop(t *testing.T) {
	assert.NotPanics(t, func() { Wrap(nil).Info("ignored") })
}
