// Package apptest holds the recording fakes shared by use case tests.
package apptest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

// Mailer records every message. Set Err to make Send fail.
type Mailer struct {
	mu   sync.Mutex
	Sent []application.Mail
	Err  error
}

func (m *Mailer) Send(_ context.Context, mail application.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

func (m *Mailer) Last() (application.Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return application.Mail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Publisher records published events. Set Err to make Publish fail.
type Publisher struct {
	mu     sync.Mutex
	Events []domoutbox.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, e)
	return nil
}

// Names lists the published event names in order.
func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.EventName())
	}
	return out
}

// Entry is one recorded log line with its bound and call fields merged.
type Entry struct {
	Msg    string
	Fields map[string]any
}

// Logs records log lines. Telemetry wraps it into an Observability with no-op tracing and metrics.
type Logs struct {
	mu      *sync.Mutex
	entries *[]Entry
	bound   []observability.Field
}

func NewLogs() *Logs {
	return &Logs{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *Logs) With(fields ...observability.Field) observability.Logger {
	return &Logs{mu: l.mu, entries: l.entries, bound: append(append([]observability.Field{}, l.bound...), fields...)}
}

func (l *Logs) record(msg string, fields []observability.Field) {
	e := Entry{Msg: msg, Fields: map[string]any{}}
	for _, f := range append(append([]observability.Field{}, l.bound...), fields...) {
		e.Fields[f.Key] = f.Value
	}
	l.mu.Lock()
	*l.entries = append(*l.entries, e)
	l.mu.Unlock()
}

func (l *Logs) Debug(msg string, fields ...observability.Field) { l.record(msg, fields) }
func (l *Logs) Info(msg string, fields ...observability.Field)  { l.record(msg, fields) }
func (l *Logs) Warn(msg string, fields ...observability.Field)  { l.record(msg, fields) }
func (l *Logs) Error(msg string, fields ...observability.Field) { l.record(msg, fields) }

// Find returns the recorded lines with msg.
func (l *Logs) Find(msg string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range *l.entries {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func (l *Logs) Telemetry() observability.Observability { return telemetry{logs: l} }

type telemetry struct{ logs *Logs }

func (t telemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t telemetry) Logger() observability.Logger   { return t.logs }
func (t telemetry) Metrics() observability.Metrics { return observability.NopMetrics() }

// Codes hands out a fixed sequence of OTP codes and then repeats the last one.
func Codes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("apptest: no codes")
		}
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}

var (
	Customer  = application.Actor{UserID: "000000000000000000000c01", Role: account.RoleUser}
	Admin     = application.Actor{UserID: "000000000000000000000a01", Role: account.RoleAdmin}
	Seller    = application.Actor{UserID: "000000000000000000000a02", Role: account.RoleSeller}
	Warehouse = application.Actor{UserID: "000000000000000000000a03", Role: account.RoleWarehouse}
)
