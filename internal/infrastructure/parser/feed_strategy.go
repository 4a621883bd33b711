package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"WasteReminder/internal/acquisition"
	"WasteReminder/internal/domain"
	"WasteReminder/internal/infrastructure/upstream"
	"WasteReminder/internal/reminder"
)

const RestFeedName = "rest-feed"

// DefaultCategoryCodes maps the feed's afvalstroom ids onto categories.
// Anything else (christmas trees, bulky waste) is dropped.
var DefaultCategoryCodes = map[int]domain.Category{
	3: domain.CategoryPaper,
	4: domain.CategoryOrganic,
	5: domain.CategoryResidual,
	6: domain.CategoryPlastic,
}

type addressCandidate struct {
	BagID string `json:"bagId"`
}

type feedEvent struct {
	CategoryCode int    `json:"afvalstroom_id"`
	PickupDate   string `json:"ophaaldatum"`
}

// FeedStrategy talks to the JSON calendar API: one address lookup, then one
// calendar request per year of the window (current and next year).
type FeedStrategy struct {
	client     *upstream.Client
	lookupURL  string
	feedURL    string
	codes      map[int]domain.Category
	normalizer *reminder.Normalizer
	now        func() time.Time
	logger     *slog.Logger
}

var _ acquisition.Strategy = (*FeedStrategy)(nil)

// FeedOptions configures the REST feed strategy.
type FeedOptions struct {
	LookupURL string
	FeedURL   string
	Codes     map[int]domain.Category
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewFeedStrategy wires the shared client; nil Codes selects DefaultCategoryCodes.
func NewFeedStrategy(client *upstream.Client, n *reminder.Normalizer, opts FeedOptions) *FeedStrategy {
	codes := opts.Codes
	if len(codes) == 0 {
		codes = DefaultCategoryCodes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &FeedStrategy{
		client:     client,
		lookupURL:  strings.TrimSuffix(opts.LookupURL, "/"),
		feedURL:    strings.TrimSuffix(opts.FeedURL, "/"),
		codes:      codes,
		normalizer: n,
		now:        now,
		logger:     opts.Logger,
	}
}

// Name identifies the strategy inside the registry.
func (s *FeedStrategy) Name() string {
	return RestFeedName
}

// NewRun starts an acquisition with no resolved id and no cached events.
func (s *FeedStrategy) NewRun(addr domain.Address) acquisition.Run {
	return &feedRun{strategy: s, addr: addr}
}

// yearWindow covers the year-end boundary.
func (s *FeedStrategy) yearWindow() []int {
	year := s.now().Year()
	return []int{year, year + 1}
}

type feedRun struct {
	strategy  *FeedStrategy
	addr      domain.Address
	addressID string
	events    []feedEvent
	fetched   bool
}

var _ acquisition.Resolver = (*feedRun)(nil)

func (r *feedRun) Resolve(ctx context.Context) error {
	if r.addressID != "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/%s-%d", r.strategy.lookupURL,
		url.PathEscape(r.addr.PostalCode), r.addr.HouseNumber)

	var candidates []addressCandidate
	if err := r.strategy.client.JSON(ctx, endpoint, &candidates); err != nil {
		return err
	}
	if len(candidates) == 0 || candidates[0].BagID == "" {
		return domain.AddressNotFound(r.addr)
	}

	r.addressID = candidates[0].BagID
	r.strategy.debug("address resolved", "address", r.addr.String(), "id", r.addressID, "candidates", len(candidates))
	return nil
}

func (r *feedRun) Fetch(ctx context.Context) error {
	if r.fetched {
		return nil
	}
	if err := r.Resolve(ctx); err != nil {
		return err
	}

	var all []feedEvent
	for _, year := range r.strategy.yearWindow() {
		endpoint := fmt.Sprintf("%s/%s/kalender/%s", r.strategy.feedURL,
			url.PathEscape(r.addressID), strconv.Itoa(year))

		var events []feedEvent
		if err := r.strategy.client.JSON(ctx, endpoint, &events); err != nil {
			return errors.Wrapf(err, "calendar %d", year)
		}
		r.strategy.debug("calendar year fetched", "year", year, "events", len(events))
		all = append(all, events...)
	}

	r.events = all
	r.fetched = true
	return nil
}

func (r *feedRun) Extract(category domain.Category) ([]string, error) {
	if !r.fetched {
		return nil, errors.AssertionFailedf("extract %s before fetch", category)
	}

	seen := map[string]struct{}{}
	var tokens []string
	for _, ev := range r.events {
		mapped, ok := r.strategy.codes[ev.CategoryCode]
		if !ok || mapped != category {
			continue
		}
		if _, dup := seen[ev.PickupDate]; dup {
			continue
		}
		seen[ev.PickupDate] = struct{}{}
		tokens = append(tokens, ev.PickupDate)
	}
	return tokens, nil
}

func (r *feedRun) Normalize(token string) (domain.ReminderDate, error) {
	return r.strategy.normalizer.ISO(token)
}

func (s *FeedStrategy) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
