// Package schedule hosts the single shared interval scheduler. Every
// recurring job in the service (the reminder polls and the auth health
// check) registers here instead of spinning up its own timer, so there is
// one place to start, stop and reason about background cadence.
package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps a cron runner with panic isolation per job.
type Scheduler struct {
	c   *cron.Cron
	log *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{c: cron.New(), log: log}
}

// Every registers a job on a fixed cadence. The job is wrapped so a panic
// is logged instead of taking the whole scheduler down.
func (s *Scheduler) Every(every time.Duration, name string, job func()) {
	s.c.Schedule(cron.Every(every), cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduled job panicked",
					zap.String("job", name), zap.Any("panic", r))
			}
		}()
		job()
	}))
}

// Start launches the scheduler's run loop.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }
