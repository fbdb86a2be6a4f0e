package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/MohitGoyal09/portfolio/internal/metrics"
)

// scheduler runs the periodic maintenance jobs on cron schedules.
type scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	running bool
}

func newScheduler(log *slog.Logger, met *metrics.Registry) *scheduler {
	return &scheduler{
		// A slow run is skipped rather than stacked.
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log.With(slog.String("component", "scheduler")),
		metrics: met,
	}
}

// add registers fn under name. An empty spec disables the job.
func (s *scheduler) add(name, spec string, fn func() error) error {
	if spec == "" {
		s.log.Info("job not scheduled", slog.String("job", name))
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		err := fn()
		if s.metrics != nil {
			s.metrics.RecordCronRun(name, err)
		}
		if err != nil {
			s.log.Error("scheduled job failed", slog.String("job", name), slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Info("job scheduled", slog.String("job", name), slog.String("schedule", spec))
	return nil
}

func (s *scheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// stop stops the scheduler and waits for running jobs to complete.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// jobs returns the number of registered jobs.
func (s *scheduler) jobs() int {
	return len(s.cron.Entries())
}
