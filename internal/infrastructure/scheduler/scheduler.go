// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	log     observability.Logger
	runs    observability.Counter
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(tel observability.Observability, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(),
		log:     tel.Logger().With(observability.F("component", "scheduler")),
		runs:    tel.Metrics().Counter(observability.MScheduledJobRuns),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name. spec accepts the standard five field syntax and descriptors
// such as @hourly or @every 10m.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(name, job) }); err != nil {
		return fmt.Errorf("scheduler: add %s (%q): %w", name, spec, err)
	}
	return nil
}

// Run executes job once with the scheduler's timeout, recording the outcome.
func (s *Scheduler) Run(name string, job Job) {
	logger := s.log.With(observability.F("job", name))
	outcome := "success"
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			logger.Error("scheduled_job_panic",
				observability.F("panic", r),
				observability.F("stack", string(debug.Stack())),
			)
		}
		s.runs.Add(1, observability.L("job", name), observability.L("outcome", outcome))
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	ctx = logctx.With(ctx, logger)
	if err := job(ctx); err != nil {
		outcome = "error"
		logger.Warn("scheduled_job_failed", observability.F("error", err.Error()))
		return
	}
	logger.Info("scheduled_job_done", observability.F("duration_ms", time.Since(start).Milliseconds()))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler_stop_timeout")
	}
	s.cancel()
}
