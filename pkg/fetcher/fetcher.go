// Package fetcher retrieves remote documents: HTML pages for the CLI and
// images for media sideloading.
package fetcher

import (
	"context"
	"errors"
	"time"
)

// Fetcher abstracts retrieval of a single URL.
type Fetcher interface {
	// Fetch downloads the resource at url.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Type returns a string identifying the fetcher type.
	Type() string
}

// Options controls a single fetch.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string

	// MaxBytes caps the response size. Zero means the fetcher default.
	MaxBytes int64
}

// Content is a fetched resource.
type Content struct {
	URL         string
	Body        []byte
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Error types for distinguishing failure reasons.
var (
	// ErrStatus indicates a non-2xx response.
	ErrStatus = errors.New("unexpected status code")

	// ErrTooLarge indicates the response exceeded MaxBytes.
	ErrTooLarge = errors.New("response too large")

	// ErrEmptyBody indicates a successful response with no body.
	ErrEmptyBody = errors.New("empty response body")
)
