package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"WasteReminder/internal/acquisition"
	"WasteReminder/internal/domain"
	"WasteReminder/internal/infrastructure/upstream"
	"WasteReminder/internal/reminder"
)

const calendarPage = `
<html><body>
  <div class="ophaaldagen">
    <p class="papier">papier</p>
    <p class="papier">vandaag</p>
    <p class="papier">maandag 3 maart</p>
    <p class="papier">maandag 3 maart</p>
    <p class="papier">Ophaaldag: dinsdag 1 april (let op)</p>
    <p class="papier">binnenkort</p>
    <p class="papier extra">woensdag 9 april</p>
    <p class="gft">gft</p>
    <p class="gft">vrijdag 1 augustus</p>
    <span class="restafval">zaterdag 2 augustus</span>
  </div>
</body></html>`

const typedPage = `
<html><body>
  <section>
    <h3 data-category="papier">papier</h3>
    <span data-category="papier">maandag 3 maart</span>
    <span data-category="papier">vandaag</span>
    <span data-category="pd">woensdag 1 januari</span>
    <span data-category="pd">woensdag 1 januari</span>
  </section>
</body></html>`

func clockAt(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 9, 0, 0, 0, time.UTC) }
}

func documentRun(t *testing.T, s *HTMLStrategy, page string) *htmlRun {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	run := s.NewRun(domain.Address{PostalCode: "1234AB", HouseNumber: 1}).(*htmlRun)
	run.doc = doc
	return run
}

func TestBuildCalendarURL(t *testing.T) {
	t.Parallel()

	got, err := buildCalendarURL("https://afvalstoffendienstkalender.nl/", domain.Address{PostalCode: "5211AB", HouseNumber: 12})
	if err != nil {
		t.Fatalf("buildCalendarURL returned error: %v", err)
	}
	if got != "https://afvalstoffendienstkalender.nl/nl/5211AB/12" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestTextRegexExtract(t *testing.T) {
	t.Parallel()

	s := NewTextRegexStrategy(nil, "", reminder.NewNormalizer(clockAt(2025, time.June, 1), 0), nil)
	run := documentRun(t, s, calendarPage)

	tokens, err := run.Extract(domain.CategoryPaper)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := []string{"maandag 3 maart", "dinsdag 1 april"}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("unexpected tokens: %#v", tokens)
	}

	for _, tok := range tokens {
		if tok == "papier" || tok == todaySentinel {
			t.Fatalf("sentinel leaked into tokens: %q", tok)
		}
	}

	residual, err := run.Extract(domain.CategoryResidual)
	if err != nil {
		t.Fatalf("extract residual: %v", err)
	}
	if len(residual) != 0 {
		t.Fatalf("span fragments must not match p selector: %#v", residual)
	}
}

func TestTextDirectExtract(t *testing.T) {
	t.Parallel()

	s := NewTextDirectStrategy(nil, "", reminder.NewNormalizer(clockAt(2025, time.June, 1), 0), nil)
	run := documentRun(t, s, typedPage)

	paper, err := run.Extract(domain.CategoryPaper)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !reflect.DeepEqual(paper, []string{"maandag 3 maart"}) {
		t.Fatalf("unexpected paper tokens: %#v", paper)
	}

	plastic, _ := run.Extract(domain.CategoryPlastic)
	if !reflect.DeepEqual(plastic, []string{"woensdag 1 januari"}) {
		t.Fatalf("unexpected plastic tokens: %#v", plastic)
	}

	date, err := run.Normalize(plastic[0])
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if date != "2024-12-31" {
		t.Fatalf("unexpected reminder date: %s", date)
	}
}

func TestExtractBeforeFetch(t *testing.T) {
	t.Parallel()

	s := NewTextRegexStrategy(nil, "", reminder.NewNormalizer(nil, 0), nil)
	if _, err := s.NewRun(domain.Address{}).Extract(domain.CategoryPaper); err == nil {
		t.Fatalf("expected error when extracting before fetch")
	}
}

func TestTextRegexEndToEnd(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/nl/1234AB/7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`
			<p class="papier">papier</p>
			<p class="papier">vandaag</p>
			<p class="papier">maandag 3 maart</p>`))
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Options{HTTPClient: server.Client()})
	normalizer := reminder.NewNormalizer(clockAt(2025, time.February, 20), 0)

	reg := acquisition.NewRegistry()
	reg.Register(NewTextRegexStrategy(client, server.URL, normalizer, nil))
	engine := acquisition.NewEngine(reg, nil)

	mapping, err := engine.Acquire(context.Background(), TextRegexName, domain.Address{PostalCode: "1234AB", HouseNumber: 7})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	if got := mapping[domain.CategoryPaper]; !reflect.DeepEqual(got, []domain.ReminderDate{"2025-03-02"}) {
		t.Fatalf("unexpected paper dates: %#v", got)
	}
	for _, c := range []domain.Category{domain.CategoryOrganic, domain.CategoryResidual, domain.CategoryPlastic} {
		dates, ok := mapping[c]
		if !ok || len(dates) != 0 {
			t.Fatalf("expected empty entry for %s, got %#v (present=%v)", c, dates, ok)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", hits.Load())
	}
}

func TestHTMLRunFetchIsCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<p class="gft">vrijdag 1 augustus</p>`))
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Options{HTTPClient: server.Client()})
	s := NewTextRegexStrategy(client, server.URL, reminder.NewNormalizer(nil, 0), nil)

	run := s.NewRun(domain.Address{PostalCode: "1234AB", HouseNumber: 1})
	for i := 0; i < 3; i++ {
		if err := run.Fetch(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cached document, got %d calls", hits.Load())
	}

	if err := s.NewRun(domain.Address{PostalCode: "1234AB", HouseNumber: 1}).Fetch(context.Background()); err != nil {
		t.Fatalf("fresh run fetch: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("a new run must not reuse the previous cache, got %d calls", hits.Load())
	}
}

func TestTextRegexUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := upstream.NewClient(upstream.Options{HTTPClient: server.Client()})
	reg := acquisition.NewRegistry()
	reg.Register(NewTextRegexStrategy(client, server.URL, reminder.NewNormalizer(nil, 0), nil))

	mapping, err := acquisition.NewEngine(reg, nil).Acquire(context.Background(), TextRegexName, domain.Address{PostalCode: "1234AB", HouseNumber: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if mapping != nil {
		t.Fatalf("no partial mapping expected, got %#v", mapping)
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}
