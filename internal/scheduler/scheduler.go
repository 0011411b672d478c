package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// everyMinute fires at second 0 of every minute.
const everyMinute = "* * * * *"

// Runner is one schedulable unit of work; the fetch pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler triggers the pipeline once per minute. Runs are serialized:
// a tick that arrives while the previous run is still in flight waits
// rather than overlapping it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	log       *zap.Logger
}

// New creates a Scheduler driving the given runner.
func New(runner Runner, log *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		runner:    runner,
		log:       log,
	}
}

// Start registers the every-minute job and starts the underlying
// scheduler asynchronously.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(everyMinute).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
		defer cancel()

		if err := s.runner.Run(ctx); err != nil {
			// A failed run is never fatal; the next tick retries.
			s.log.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
