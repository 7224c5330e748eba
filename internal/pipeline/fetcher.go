package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/thermobook/internal/cache"
	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/util"
)

// ErrDisallowed is wrapped by FetchError when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetchError reports a non-success HTTP status or a transport failure.
// Status is zero for transport failures.
type FetchError struct {
	Status int
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RateLimiter paces requests per domain
type RateLimiter interface {
	WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error
}

// RobotsPolicy answers robots.txt questions for a URL
type RobotsPolicy interface {
	CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error)
}

// newFetchBackOff builds the retry schedule; tests swap it for a zero backoff
var newFetchBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Fetcher fetches HTML content from URLs
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries uint64
	limiter    RateLimiter
	robots     RobotsPolicy
	cache      cache.Cache
	logger     *slog.Logger
}

// FetcherOption configures optional fetcher collaborators
type FetcherOption func(*Fetcher)

// WithLimiter paces every network fetch through l
func WithLimiter(l RateLimiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots enforces robots.txt through r
func WithRobots(r RobotsPolicy) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithCache serves repeated fetches from c
func WithCache(c cache.Cache) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger sets the fetch logger
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: cfg.MaxRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// FetchMeta is the response metadata of one fetch
type FetchMeta struct {
	StatusCode   int           `json:"status_code"`
	ContentType  string        `json:"content_type,omitempty"`
	LastModified string        `json:"last_modified,omitempty"`
	ETag         string        `json:"etag,omitempty"`
	Latency      time.Duration `json:"latency"`
	FromCache    bool          `json:"-"`
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML     string    `json:"html"`
	Meta     FetchMeta `json:"meta"`
	FinalURL string    `json:"final_url"`
}

// Fetch retrieves HTML content from the given URL with a single attempt.
// Cached pages are returned without touching the network.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if cached, ok := f.fromCache(rawURL); ok {
		return cached, nil
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("robots: %w", err)}
		}
		if !allowed {
			return nil, &FetchError{URL: rawURL, Err: ErrDisallowed}
		}
		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
				return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
			}
		}
	} else if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, 0); err != nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Status: resp.StatusCode, URL: rawURL, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	result := &FetchResult{
		HTML: string(body),
		Meta: FetchMeta{
			StatusCode:   resp.StatusCode,
			ContentType:  resp.Header.Get("Content-Type"),
			LastModified: resp.Header.Get("Last-Modified"),
			ETag:         resp.Header.Get("ETag"),
			Latency:      time.Since(start),
		},
		FinalURL: resp.Request.URL.String(),
	}
	f.toCache(rawURL, result)
	return result, nil
}

// FetchWithRetry retries transient failures (5xx, 429, transport errors)
// with exponential backoff. Other failures are returned after one attempt.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result *FetchResult
	operation := func() error {
		r, err := f.Fetch(ctx, rawURL)
		if err != nil {
			if !isRetryableFetchError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying fetch", "url", rawURL, "wait", wait, "err", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newFetchBackOff(), f.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return result, nil
}

// isRetryableFetchError returns true for transient errors worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDisallowed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch {
	case fe.Status == 0:
		return true
	case fe.Status >= 200 && fe.Status < 300:
		// Body cut short after a success status
		return true
	case fe.Status == http.StatusTooManyRequests:
		return true
	case fe.Status >= 500:
		return true
	}
	return false
}

func (f *Fetcher) fromCache(rawURL string) (*FetchResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, ok := f.cache.Get(cache.CacheKey(rawURL))
	if !ok {
		return nil, false
	}
	var result FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		f.logger.Warn("discarding unreadable cache entry", "url", rawURL, "err", err)
		_ = f.cache.Delete(cache.CacheKey(rawURL))
		return nil, false
	}
	result.Meta.FromCache = true
	result.Meta.Latency = 0
	return &result, true
}

func (f *Fetcher) toCache(rawURL string, result *FetchResult) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := f.cache.Set(cache.CacheKey(rawURL), data, 0); err != nil {
		f.logger.Warn("cache write failed", "url", rawURL, "err", err)
	}
}
