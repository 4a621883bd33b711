package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WasteReminder/internal/domain"
)

type stubSource struct {
	mu      sync.Mutex
	results []domain.ReminderMapping
	errs    []error
	calls   int
}

func (s *stubSource) FetchReminders(ctx context.Context) (domain.ReminderMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return domain.ReminderMapping{}, nil
}

type memoryRepo struct {
	mu       sync.Mutex
	stored   domain.ReminderMapping
	replaces int
	err      error
}

func (m *memoryRepo) Replace(ctx context.Context, mapping domain.ReminderMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.stored = mapping
	m.replaces++
	return nil
}

func (m *memoryRepo) List(ctx context.Context) ([]domain.StoredDate, error) {
	return nil, nil
}

func (m *memoryRepo) FirstByDate(ctx context.Context, date domain.ReminderDate) (*domain.StoredDate, error) {
	return nil, nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 1, 6, 0, 0, 0, time.UTC)
}

func TestRefreshPersistsMapping(t *testing.T) {
	t.Parallel()

	mapping := domain.ReminderMapping{domain.CategoryPaper: {"2025-03-02"}}
	repo := &memoryRepo{}
	r := NewRefresher(RefresherDeps{
		Source:     &stubSource{results: []domain.ReminderMapping{mapping}},
		Repository: repo,
		Now:        fixedNow,
	})

	got, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mapping, got)
	assert.Equal(t, mapping, repo.stored)

	snap := r.Latest()
	assert.Equal(t, mapping, snap.Mapping)
	assert.Equal(t, fixedNow(), snap.RefreshedAt)
	assert.NoError(t, snap.Err)
}

func TestRefreshFailureKeepsStaleState(t *testing.T) {
	t.Parallel()

	good := domain.ReminderMapping{domain.CategoryOrganic: {"2025-06-09"}}
	upstreamErr := domain.UpstreamUnavailable(nil, "status 503")
	repo := &memoryRepo{}
	r := NewRefresher(RefresherDeps{
		Source: &stubSource{
			results: []domain.ReminderMapping{good},
			errs:    []error{nil, upstreamErr},
		},
		Repository: repo,
		Now:        fixedNow,
	})

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	_, err = r.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	assert.Equal(t, 1, repo.replaces, "failed run must not touch storage")
	assert.Equal(t, good, repo.stored)

	snap := r.Latest()
	assert.Equal(t, good, snap.Mapping)
	assert.Error(t, snap.Err)
}

func TestRefreshRepositoryError(t *testing.T) {
	t.Parallel()

	r := NewRefresher(RefresherDeps{
		Source:     &stubSource{},
		Repository: &memoryRepo{err: errors.New("disk full")},
	})

	_, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, r.Latest().Mapping)
}

func TestRefreshWithoutSource(t *testing.T) {
	t.Parallel()

	_, err := NewRefresher(RefresherDeps{}).Refresh(context.Background())
	assert.Error(t, err)
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(ctx context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(ctx context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerDrivesRefresher(t *testing.T) {
	t.Parallel()

	source := &stubSource{}
	driver := &manualDriver{}
	s := NewScheduler(driver, NewRefresher(RefresherDeps{Source: source}))

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	driver.job(time.Now())
	assert.Equal(t, 2, source.calls)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}
