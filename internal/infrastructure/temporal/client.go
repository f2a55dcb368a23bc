package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"github.com/Zhima-Mochi/readify/internal/observability"
)

// Dial connects to the Temporal frontend, routing SDK logs through logger.
func Dial(hostPort string, logger observability.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: hostPort,
		Logger:   NewLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal: dial %s: %w", hostPort, err)
	}
	return c, nil
}

type logAdapter struct {
	l observability.Logger
}

var _ sdklog.Logger = logAdapter{}

func NewLogger(l observability.Logger) sdklog.Logger {
	if l == nil {
		l = observability.NopLogger()
	}
	return logAdapter{l: l.With(observability.F("component", "temporal"))}
}

func (a logAdapter) Debug(msg string, keyvals ...interface{}) { a.l.Debug(msg, fields(keyvals)...) }
func (a logAdapter) Info(msg string, keyvals ...interface{})  { a.l.Info(msg, fields(keyvals)...) }
func (a logAdapter) Warn(msg string, keyvals ...interface{})  { a.l.Warn(msg, fields(keyvals)...) }
func (a logAdapter) Error(msg string, keyvals ...interface{}) { a.l.Error(msg, fields(keyvals)...) }

// fields pairs up alternating keys and values. A dangling key is kept with a nil value.
func fields(keyvals []interface{}) []observability.Field {
	out := make([]observability.Field, 0, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		out = append(out, observability.F(key, v))
	}
	return out
}
