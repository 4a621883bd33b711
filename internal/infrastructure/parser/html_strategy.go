package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"WasteReminder/internal/acquisition"
	"WasteReminder/internal/domain"
	"WasteReminder/internal/infrastructure/upstream"
	"WasteReminder/internal/reminder"
)

const (
	TextRegexName  = "text-regex"
	TextDirectName = "text-direct"

	// todaySentinel marks "collection is today" instead of a dated entry.
	todaySentinel = "vandaag"
)

// HTMLStrategy scrapes the per-address calendar page. Fragments are tagged
// with the category label; the regex variant additionally requires each
// fragment to contain "<weekday> <day> <month>".
type HTMLStrategy struct {
	name           string
	client         *upstream.Client
	baseURL        string
	normalizer     *reminder.Normalizer
	logger         *slog.Logger
	requirePattern bool
	selector       func(domain.Category) string
}

var _ acquisition.Strategy = (*HTMLStrategy)(nil)

// NewTextRegexStrategy reads <p class="label"> fragments and keeps only those
// matching the locale date pattern.
func NewTextRegexStrategy(client *upstream.Client, baseURL string, n *reminder.Normalizer, log *slog.Logger) *HTMLStrategy {
	return &HTMLStrategy{
		name:           TextRegexName,
		client:         client,
		baseURL:        baseURL,
		normalizer:     n,
		logger:         log,
		requirePattern: true,
		selector: func(c domain.Category) string {
			return fmt.Sprintf(`p[class=%q]`, string(c))
		},
	}
}

// NewTextDirectStrategy reads typed blocks [data-category="label"] and passes
// their text straight to the normalizer.
func NewTextDirectStrategy(client *upstream.Client, baseURL string, n *reminder.Normalizer, log *slog.Logger) *HTMLStrategy {
	return &HTMLStrategy{
		name:       TextDirectName,
		client:     client,
		baseURL:    baseURL,
		normalizer: n,
		logger:     log,
		selector: func(c domain.Category) string {
			return fmt.Sprintf(`[data-category=%q]`, string(c))
		},
	}
}

// Name identifies the strategy inside the registry.
func (s *HTMLStrategy) Name() string {
	return s.name
}

// NewRun starts an acquisition with an empty document cache.
func (s *HTMLStrategy) NewRun(addr domain.Address) acquisition.Run {
	return &htmlRun{strategy: s, addr: addr}
}

type htmlRun struct {
	strategy *HTMLStrategy
	addr     domain.Address
	doc      *goquery.Document
}

func (r *htmlRun) Fetch(ctx context.Context) error {
	if r.doc != nil {
		return nil
	}

	pageURL, err := buildCalendarURL(r.strategy.baseURL, r.addr)
	if err != nil {
		return err
	}

	doc, err := r.strategy.client.Document(ctx, pageURL)
	if err != nil {
		return err
	}
	r.doc = doc
	return nil
}

func (r *htmlRun) Extract(category domain.Category) ([]string, error) {
	if r.doc == nil {
		return nil, errors.AssertionFailedf("extract %s before fetch", category)
	}

	label := string(category)
	seen := map[string]struct{}{}
	var tokens []string

	r.doc.Find(r.strategy.selector(category)).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" || text == label || text == todaySentinel {
			return
		}

		if r.strategy.requirePattern {
			match, ok := reminder.MatchLocale(text)
			if !ok {
				r.strategy.debug("skip fragment", "category", label, "text", text)
				return
			}
			text = match
		}

		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		tokens = append(tokens, text)
	})

	return tokens, nil
}

func (r *htmlRun) Normalize(token string) (domain.ReminderDate, error) {
	return r.strategy.normalizer.Locale(token)
}

func (s *HTMLStrategy) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// buildCalendarURL expands <base>/nl/{postal_code}/{number}.
func buildCalendarURL(base string, addr domain.Address) (string, error) {
	if _, err := url.Parse(base); err != nil {
		return "", errors.Wrapf(err, "invalid calendar base url %s", base)
	}
	return url.JoinPath(base, "nl", addr.PostalCode, strconv.Itoa(addr.HouseNumber))
}
