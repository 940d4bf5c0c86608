package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher reloads the catalog snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler keeps the catalog cache warm on a cron schedule. Schedules accept
// an optional seconds field and descriptors such as "@every 30s".
type Scheduler struct {
	refresher Refresher
	schedule  string
	timeout   time.Duration
	log       *zap.Logger
	c         *cron.Cron
}

func NewScheduler(refresher Refresher, schedule string, timeout time.Duration, log *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		log:       log.Named("catalog_warmer"),
		c:         cron.New(cron.WithParser(parser)),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.c.AddFunc(s.schedule, s.Run); err != nil {
		return fmt.Errorf("schedule catalog refresh %q: %w", s.schedule, err)
	}
	s.c.Start()
	s.log.Info("catalog warm-up scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

// Run performs one refresh. Failures are logged and never stop the schedule.
func (s *Scheduler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.Refresh(ctx); err != nil {
		s.log.Warn("catalog refresh failed", zap.Error(err))
		return
	}
	s.log.Debug("catalog refreshed", zap.Duration("took", time.Since(start)))
}
