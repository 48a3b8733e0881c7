package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/htmlblocks/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

const (
	defaultUserAgent = "htmlblocks/1.0 (+https://github.com/jmylchreest/htmlblocks)"
	defaultMaxBytes  = 10 << 20
)

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		MaxBytes:  defaultMaxBytes,
	}
}

// StaticFetcher uses Colly for plain HTTP fetching.
// It implements the Fetcher interface and is safe for concurrent use.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	def := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	return &StaticFetcher{config: cfg}
}

// Fetch downloads targetURL. Non-2xx responses, empty bodies and bodies
// larger than the size limit are errors.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	logger.Debug("static fetch starting", "url", targetURL)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	maxBytes := opts.MaxBytes
	if maxBytes == 0 {
		maxBytes = f.config.MaxBytes
	}

	// One byte over the limit tells a truncated body from one that fits.
	c := colly.NewCollector(
		colly.UserAgent(coalesce(opts.UserAgent, f.config.UserAgent)),
		colly.MaxBodySize(int(maxBytes)+1),
		colly.AllowURLRevisit(),
	)
	c.Context = ctx

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	c.SetRequestTimeout(timeout)

	if len(opts.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.Body = r.Body
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		if r != nil && r.StatusCode >= 300 {
			fetchErr = fmt.Errorf("%w: %d", ErrStatus, r.StatusCode)
			return
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	visitErr := c.Visit(targetURL)

	// Colly reports HTTP errors through both OnError and Visit; the
	// callback carries the status code, so it wins.
	if fetchErr != nil {
		logger.Debug("static fetch error", "url", targetURL, "status", result.StatusCode, "error", fetchErr)
		return result, fetchErr
	}
	if visitErr != nil {
		logger.Debug("static fetch visit failed", "url", targetURL, "error", visitErr)
		return result, fmt.Errorf("failed to visit URL: %w", visitErr)
	}

	if len(result.Body) == 0 {
		return result, ErrEmptyBody
	}
	if int64(len(result.Body)) > maxBytes {
		return result, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}

	logger.Debug("static fetch complete", "url", targetURL, "bytes", len(result.Body))
	return result, nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
