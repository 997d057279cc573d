package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrUnavailable   = errors.New("live match feed unavailable")
	ErrMatchNotFound = errors.New("match not found in live feed")
)

const (
	liveCacheKey   = "feed:ao-vivo"
	maxPayloadSize = 5 << 20
)

// Cache stores raw feed payloads between requests.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Source is what the rest of the application needs from the live feed.
type Source interface {
	Live(ctx context.Context) ([]Match, error)
	LiveRaw(ctx context.Context) ([]byte, error)
	Find(ctx context.Context, id int64) (*Match, error)
}

type Options struct {
	BaseURL       string
	APIKey        string
	RatePerSecond float64
	Timeout       time.Duration
	CacheTTL      time.Duration
	Cache         Cache
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client reads the api-futebol live endpoint. Outgoing requests are rate limited and
// successful payloads are cached when a Cache is configured.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logger.With("component", "feed_client"),
	}
}

// LiveRaw returns the undecoded live payload.
func (c *Client) LiveRaw(ctx context.Context) ([]byte, error) {
	if c.cache != nil && c.cacheTTL > 0 {
		cached, ok, err := c.cache.Get(ctx, liveCacheKey)
		if err != nil {
			c.logger.WarnContext(ctx, "feed cache read failed", slog.Any("error", err))
		} else if ok {
			return cached, nil
		}
	}

	body, err := c.fetch(ctx, "/ao-vivo")
	if err != nil {
		return nil, err
	}

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, liveCacheKey, body, c.cacheTTL); err != nil {
			c.logger.WarnContext(ctx, "feed cache write failed", slog.Any("error", err))
		}
	}
	return body, nil
}

func (c *Client) Live(ctx context.Context) ([]Match, error) {
	body, err := c.LiveRaw(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

func (c *Client) Find(ctx context.Context, id int64) (*Match, error) {
	matches, err := c.Live(ctx)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if matches[i].ID == id {
			return &matches[i], nil
		}
	}
	return nil, ErrMatchNotFound
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "feed request done",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrUnavailable, err)
	}
	if _, err := Decode(body); err != nil {
		return nil, err
	}
	return body, nil
}

// Decode parses a live payload.
func Decode(body []byte) ([]Match, error) {
	var matches []Match
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrUnavailable, err)
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}
