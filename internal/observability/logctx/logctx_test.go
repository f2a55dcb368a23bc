package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zhima-Mochi/readify/internal/observability"
)

type fieldLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l fieldLogger) With(fields ...observability.Field) observability.Logger {
	return fieldLogger{Logger: l.Logger, fields: append(append([]observability.Field{}, l.fields...), fields...)}
}

func TestFromOr(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))

	l := fieldLogger{Logger: observability.NopLogger()}
	assert.Equal(t, l, FromOr(With(context.Background(), l), fallback))
	assert.Nil(t, From(context.Background()))
}

func TestEnrich(t *testing.T) {
	bare := context.Background()
	assert.Equal(t, bare, Enrich(bare, observability.F("user_id", "u1")))

	ctx := Enrich(With(bare, fieldLogger{Logger: observability.NopLogger()}), observability.F("user_id", "u1"))
	got, ok := From(ctx).(fieldLogger)
	assert.True(t, ok)
	assert.Equal(t, []observability.Field{observability.F("user_id", "u1")}, got.fields)
}
