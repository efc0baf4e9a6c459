// internal/app/system/workers/runner.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/animelist/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Runner is a background worker that runs one tasks.Job on its schedule.
type Runner struct {
	job        tasks.Job
	log        *zap.Logger
	runOnStart bool
	now        func() time.Time
	stopCh     chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunOnStart runs the job once immediately after Start, catching up on a
// run missed while the process was down.
func WithRunOnStart() Option {
	return func(w *Runner) { w.runOnStart = true }
}

// NewRunner creates a worker for job.
func NewRunner(job tasks.Job, logger *zap.Logger, opts ...Option) *Runner {
	w := &Runner{
		job:    job,
		log:    logger.With(zap.String("job", job.Name)),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start begins the background loop.
func (w *Runner) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started",
		zap.Bool("run_on_start", w.runOnStart),
		zap.Time("next_run", w.job.Next(w.now())))
}

// Stop signals the worker to stop and waits for it to finish. An in-flight
// run is cancelled. Safe to call more than once.
func (w *Runner) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Runner) run() {
	defer w.wg.Done()

	if w.runOnStart {
		w.runOnce()
	}

	for {
		wait := w.job.Next(w.now()).Sub(w.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-w.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			w.runOnce()
		}
	}
}

func (w *Runner) runOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if w.job.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, w.job.Timeout)
		defer cancel()
	}

	// Cancel the run if Stop is called mid-flight.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-done:
		}
	}()

	start := w.now()
	if err := w.job.Run(ctx); err != nil {
		w.log.Error("job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	w.log.Debug("job finished", zap.Duration("took", time.Since(start)))
}
