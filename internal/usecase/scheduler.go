package usecase

import (
	"context"
	"time"

	"WasteReminder/internal/ports"
)

// Scheduler wires the interval driver with the refresh use case.
type Scheduler struct {
	driver    ports.Scheduler
	refresher *Refresher
}

// NewScheduler returns a helper to start/stop recurring refreshes.
func NewScheduler(driver ports.Scheduler, refresher *Refresher) *Scheduler {
	return &Scheduler{driver: driver, refresher: refresher}
}

// Start registers the refresh with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.refresher == nil {
		return nil
	}

	job := func(trigger time.Time) {
		// failures are recorded in the refresher snapshot and logged there
		_, _ = s.refresher.Refresh(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
