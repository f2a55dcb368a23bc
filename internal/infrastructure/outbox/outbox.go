package outbox

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

const (
	componentOutbox = "outbox"
	busPeer         = "bus"

	// AllEvents subscribes a handler to every event name, e.g. a broker relay.
	AllEvents = "*"
)

// Options tunes the bus; zero values take the defaults.
type Options struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 30 * time.Second
	}
	return o
}

// Bus is an in-process event bus. Events are not persisted; a crash drops whatever is queued.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string][]domoutbox.Handler
	queue     chan domoutbox.Event
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	opts      Options
	log       observability.Logger

	handled observability.Counter
	latency observability.Histogram
}

func NewBus(logger observability.Logger, tel observability.Observability, opts Options) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	metrics := observability.NopMetrics()
	if tel != nil {
		metrics = tel.Metrics()
	}
	opts = opts.withDefaults()
	return &Bus{
		subs:    make(map[string][]domoutbox.Handler),
		queue:   make(chan domoutbox.Event, opts.QueueSize),
		done:    make(chan struct{}),
		opts:    opts,
		log:     logger.With(observability.F("component", componentOutbox)),
		handled: metrics.Counter(observability.MExternalRequests),
		latency: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop drains queued events, waiting until ctx expires at most.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.queue)
		select {
		case <-b.done:
		case <-ctx.Done():
			logctx.FromOr(ctx, b.log).Warn("event_bus_drain_timeout")
		}
		if b.cancel != nil {
			b.cancel()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) (err error) {
	if e == nil {
		return nil
	}
	defer func() {
		// publishing after Stop
		if r := recover(); r != nil {
			err = context.Canceled
		}
	}()
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) handlersFor(name string) []domoutbox.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := append([]domoutbox.Handler(nil), b.subs[name]...)
	return append(hs, b.subs[AllEvents]...)
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()
	handlers := b.handlersFor(name)
	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	sem := make(chan struct{}, b.opts.Concurrency)
	var wg sync.WaitGroup
	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			b.run(ctx, logger, name, h, e)
		}()
	}
	wg.Wait()
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}

func (b *Bus) run(ctx context.Context, logger observability.Logger, name string, h domoutbox.Handler, e domoutbox.Event) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			logger.Error("event_handler_panic",
				observability.F("panic", r),
				observability.F("stack", string(debug.Stack())),
			)
		}
		b.handled.Add(1,
			observability.L("peer", busPeer),
			observability.L("endpoint", name),
			observability.L("outcome", outcome),
		)
		b.latency.Observe(time.Since(start).Seconds(),
			observability.L("peer", busPeer),
			observability.L("endpoint", name),
		)
	}()

	hctx, cancel := context.WithTimeout(ctx, b.opts.HandlerTimeout)
	defer cancel()
	hctx = logctx.With(hctx, logger)
	if err := h(hctx, e); err != nil {
		outcome = "error"
		logger.Warn("event_handler_error", observability.F("error", err))
	}
}
