package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule validates a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(schedule string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// Scheduler runs the sweeper in the background on a cron schedule, which
// takes the directory scan off the request path.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(sweeper *Sweeper, schedule string, maxAge time.Duration) (*Scheduler, error) {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := sweeper.Sweep(maxAge); err != nil {
			slog.Error("scheduled sweep failed", "error", err)
		}
	}))
	slog.Info("retention sweep scheduled", "cron", schedule, "max_age", maxAge.String())

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
