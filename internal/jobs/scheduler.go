package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"drravalement/site/internal/queue"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, data any) error
}

// Scheduler enqueues periodic maintenance jobs for the worker.
type Scheduler struct {
	cron        *cron.Cron
	queue       Enqueuer
	cleanupSpec string
	log         zerolog.Logger
}

func NewScheduler(queue Enqueuer, cleanupSpec string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:        c,
		queue:       queue,
		cleanupSpec: cleanupSpec,
		log:         log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.cleanupSpec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cleanupSpec, s.enqueueSessionCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("sessions_cleanup", s.cleanupSpec).Msg("scheduler started")
	return nil
}

// Stop halts the schedule and waits up to timeout for a running job.
func (s *Scheduler) Stop(timeout time.Duration) {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(timeout):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

type cleanupJob struct {
	Before time.Time `json:"before"`
}

func (s *Scheduler) enqueueSessionCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, queue.JobSessionsCleanup, cleanupJob{Before: time.Now().UTC()}); err != nil {
		s.log.Error().Err(err).Msg("enqueue sessions cleanup failed")
	}
}
