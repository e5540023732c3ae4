package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Dispatcher is whatever posts the daily question; the scheduler carries no
// quiz logic of its own.
type Dispatcher interface {
	DailyDispatch(ctx context.Context)
}

// Scheduler fires the daily question on a cron spec in the configured
// timezone.
type Scheduler struct {
	cron *cron.Cron
}

// New builds a scheduler. An empty cronSpec defaults to 07:00 daily; an
// unknown timezone falls back to UTC.
func New(cronSpec, timezone string, dispatcher Dispatcher) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("unknown timezone %q, defaulting to UTC", timezone)
		loc = time.UTC
	}
	if cronSpec == "" {
		cronSpec = "0 7 * * *"
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cronSpec, func() {
		log.Printf("running scheduled daily question dispatch")
		dispatcher.DailyDispatch(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", cronSpec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling; already-running dispatches finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
