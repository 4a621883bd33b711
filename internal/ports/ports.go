package ports

import (
	"context"
	"time"

	"WasteReminder/internal/domain"
)

// ReminderSource performs one acquisition run for the configured address.
type ReminderSource interface {
	FetchReminders(ctx context.Context) (domain.ReminderMapping, error)
}

// ReminderRepository stores the latest mapping as one row per (category, date).
type ReminderRepository interface {
	Replace(ctx context.Context, mapping domain.ReminderMapping) error
	List(ctx context.Context) ([]domain.StoredDate, error)
	FirstByDate(ctx context.Context, date domain.ReminderDate) (*domain.StoredDate, error)
}

// Scheduler controls when refreshes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
