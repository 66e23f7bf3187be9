package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs named periodic jobs in a fixed timezone
type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	started bool
}

// NewScheduler creates a scheduler for the given location
func NewScheduler(loc *time.Location, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Add registers fn under name using a standard cron spec or descriptor like "@every 1m".
// Adding a name twice replaces the earlier job.
func (s *Scheduler) Add(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"job":   name,
					"panic": r,
				}).Error("Scheduled job panicked")
			}
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("add job %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = id

	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"spec": spec,
	}).Debug("Job scheduled")
	return nil
}

// Next returns the next run time of a job
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the scheduler and waits for running jobs or ctx
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
