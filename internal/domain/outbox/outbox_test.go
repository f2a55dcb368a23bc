package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, e Event) error {
				calls = append(calls, name)
				return next(ctx, e)
			}
		}
	}
	h := Chain(func(context.Context, Event) error {
		calls = append(calls, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	assert.NoError(t, h(context.Background(), nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}
