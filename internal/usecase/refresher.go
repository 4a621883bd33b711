package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"WasteReminder/internal/domain"
	"WasteReminder/internal/ports"
)

// RefresherDeps wires the driven adapters into the refresh use case.
type RefresherDeps struct {
	Source     ports.ReminderSource
	Repository ports.ReminderRepository
	Logger     *slog.Logger
	Now        func() time.Time
}

// Snapshot is the outcome of the latest refresh attempts.
type Snapshot struct {
	// Mapping and RefreshedAt belong to the last successful run; a failed
	// run leaves them untouched.
	Mapping     domain.ReminderMapping
	RefreshedAt time.Time
	AttemptedAt time.Time
	Err         error
}

// Refresher runs one acquisition and replaces the stored dates with its result.
type Refresher struct {
	source     ports.ReminderSource
	repository ports.ReminderRepository
	logger     *slog.Logger
	now        func() time.Time

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest Snapshot
}

// NewRefresher constructs the refresh use case.
func NewRefresher(deps RefresherDeps) *Refresher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Refresher{
		source:     deps.Source,
		repository: deps.Repository,
		logger:     deps.Logger,
		now:        now,
	}
}

// Refresh acquires the current mapping and, only on success, persists it.
// Concurrent calls are serialised.
func (r *Refresher) Refresh(ctx context.Context) (domain.ReminderMapping, error) {
	if r.source == nil {
		return nil, errors.New("refresher has no reminder source")
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	attempted := r.now()
	mapping, err := r.source.FetchReminders(ctx)
	if err == nil && r.repository != nil {
		if storeErr := r.repository.Replace(ctx, mapping); storeErr != nil {
			err = errors.Wrap(storeErr, "persist reminder dates")
		}
	}

	if err != nil {
		r.record(func(s *Snapshot) {
			s.AttemptedAt = attempted
			s.Err = err
		})
		r.log(slog.LevelError, "refresh failed", "error", err, "retryable", domain.Retryable(err))
		return nil, err
	}

	r.record(func(s *Snapshot) {
		s.Mapping = mapping
		s.RefreshedAt = attempted
		s.AttemptedAt = attempted
		s.Err = nil
	})
	r.log(slog.LevelInfo, "refresh done", "dates", countDates(mapping))
	return mapping, nil
}

// Latest returns the most recent snapshot.
func (r *Refresher) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Refresher) record(update func(*Snapshot)) {
	r.mu.Lock()
	update(&r.latest)
	r.mu.Unlock()
}

func (r *Refresher) log(level slog.Level, msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Log(context.Background(), level, msg, args...)
	}
}

func countDates(mapping domain.ReminderMapping) int {
	total := 0
	for _, dates := range mapping {
		total += len(dates)
	}
	return total
}
