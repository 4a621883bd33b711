package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"WasteReminder/internal/domain"
)

const defaultUserAgent = "WasteReminder/1.0"

// Options tunes the shared upstream client.
type Options struct {
	HTTPClient        *http.Client
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client performs GET requests against the municipal calendar sites. Every
// failure is reported as domain.ErrUpstreamUnavailable; no retries happen here.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// NewClient builds a client; a non-positive RequestsPerSecond disables limiting.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		http:      client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: ua,
		logger:    opts.Logger,
	}
}

// Document fetches pageURL and parses it as HTML.
func (c *Client) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.get(ctx, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.UpstreamUnavailable(err, "parse document %s", pageURL)
	}
	return doc, nil
}

// JSON fetches endpoint and decodes the body into v.
func (c *Client) JSON(ctx context.Context, endpoint string, v any) error {
	resp, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return domain.UpstreamUnavailable(err, "decode %s", endpoint)
	}
	return nil
}

func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.UpstreamUnavailable(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.UpstreamUnavailable(err, "build request %s", target)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.UpstreamUnavailable(err, "request %s", target)
	}
	c.debug("upstream response", "url", target, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, domain.UpstreamUnavailable(nil, "%s returned %s: %s",
			target, resp.Status, strings.TrimSpace(string(snippet)))
	}

	return resp, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
