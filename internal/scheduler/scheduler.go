package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"weather-dashboard/internal/locations"
)

// Scheduler periodically re-runs the saved-location batch refresh so tabs
// stay reasonably fresh without user action. This refreshes the server-side
// store only; nothing is pushed to clients.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *locations.Store
	interval  time.Duration
}

// New creates a new Scheduler. An interval of zero disables it.
func New(store *locations.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: background refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		log.Println("scheduler: running background forecast refresh")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.store.RefreshAll(ctx)
		log.Println("scheduler: completed background forecast refresh")
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
