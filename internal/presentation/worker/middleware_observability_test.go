package workerpresentation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

type recordingLogger struct {
	mu     *sync.Mutex
	fields []observability.Field
	lines  *[]map[string]any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, lines: &[]map[string]any{}}
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{mu: l.mu, fields: append(append([]observability.Field{}, l.fields...), fields...), lines: l.lines}
}

func (l *recordingLogger) log(msg string, fields ...observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := map[string]any{"msg": msg}
	for _, f := range append(append([]observability.Field{}, l.fields...), fields...) {
		line[f.Key] = f.Value
	}
	*l.lines = append(*l.lines, line)
}

func (l *recordingLogger) Debug(msg string, fields ...observability.Field) { l.log(msg, fields...) }
func (l *recordingLogger) Info(msg string, fields ...observability.Field)  { l.log(msg, fields...) }
func (l *recordingLogger) Warn(msg string, fields ...observability.Field)  { l.log(msg, fields...) }
func (l *recordingLogger) Error(msg string, fields ...observability.Field) { l.log(msg, fields...) }

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = map[string]domoutbox.Handler{}
	}
	c.handlers[name] = h
}

func TestWithEventContextAddsEventFields(t *testing.T) {
	base := newRecordingLogger()
	ctx := WithEventContext(context.Background(), base, namedEvent("order.paid"), map[string]string{
		"consumer": "notifications",
		"event_id": "ignored",
		"empty":    "",
	})

	logctx.From(ctx).Info("handled")
	require.Len(t, *base.lines, 1)
	line := (*base.lines)[0]
	assert.Equal(t, "order.paid", line["event"])
	assert.Equal(t, "notifications", line["consumer"])
	assert.NotEqual(t, "ignored", line["event_id"])
	assert.NotEmpty(t, line["event_id"])
	assert.NotContains(t, line, "empty")
	assert.NotContains(t, line, "trace_id")
}

func TestWithEventContextBuildsOnContextLogger(t *testing.T) {
	base := newRecordingLogger()
	ctx := logctx.With(context.Background(), base.With(observability.F("component", "outbox")))

	ctx = WithEventContext(ctx, observability.NopLogger(), namedEvent("order.created"), nil)
	logctx.From(ctx).Info("handled")

	require.Len(t, *base.lines, 1)
	assert.Equal(t, "outbox", (*base.lines)[0]["component"])
	assert.Equal(t, "order.created", (*base.lines)[0]["event"])
}

func TestSubscriberWrapsHandlers(t *testing.T) {
	base := newRecordingLogger()
	inner := &captureSubscriber{}
	sub := Subscriber(inner, base, "relay")

	var seen bool
	sub.Subscribe("order.cancelled", func(ctx context.Context, e domoutbox.Event) error {
		logctx.From(ctx).Info("got")
		seen = true
		return nil
	})

	h, ok := inner.handlers["order.cancelled"]
	require.True(t, ok)
	require.NoError(t, h(context.Background(), namedEvent("order.cancelled")))
	assert.True(t, seen)
	require.Len(t, *base.lines, 1)
	assert.Equal(t, "relay", (*base.lines)[0]["consumer"])
}
