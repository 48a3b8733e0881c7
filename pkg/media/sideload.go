package media

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/pkg/fetcher"
)

// SideloaderConfig configures a Sideloader.
type SideloaderConfig struct {
	// Dir receives the downloaded files. It is created if missing.
	Dir string

	// BaseURL is the public prefix under which files in Dir are served.
	BaseURL string

	// MaxBytes caps the size of a single image.
	MaxBytes int64

	// Timeout bounds a single download.
	Timeout time.Duration
}

// DefaultSideloaderConfig returns sensible defaults.
func DefaultSideloaderConfig() SideloaderConfig {
	return SideloaderConfig{
		Dir:      "media",
		BaseURL:  "/media",
		MaxBytes: 10 << 20,
		Timeout:  30 * time.Second,
	}
}

// Sideloader downloads images into a local directory and records them in
// a Store. It implements Persister.
type Sideloader struct {
	store   *Store
	fetcher fetcher.Fetcher
	config  SideloaderConfig
}

// NewSideloader creates a Sideloader and its media directory.
func NewSideloader(store *Store, f fetcher.Fetcher, cfg SideloaderConfig) (*Sideloader, error) {
	def := DefaultSideloaderConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Sideloader{store: store, fetcher: f, config: cfg}, nil
}

// Sideload stores the image at rawURL for ownerID. An image already
// stored for the same owner is reused; a non-empty alt replaces its alt
// text.
func (s *Sideloader) Sideload(ctx context.Context, rawURL string, ownerID int, alt string) (Attachment, error) {
	alt = strings.Join(strings.Fields(alt), " ")

	if err := checkURL(rawURL); err != nil {
		return Attachment{}, &PersistError{URL: rawURL, Err: err}
	}

	rec, err := s.store.FindAttachment(ctx, rawURL, ownerID)
	switch {
	case err == nil:
		logger.Debug("reusing stored attachment", "url", rawURL, "id", rec.ID)
		if alt != "" && alt != rec.Alt {
			if err := s.store.UpdateAlt(ctx, rec.ID, alt); err != nil {
				return Attachment{}, &PersistError{URL: rawURL, Err: err}
			}
			rec.Alt = alt
		}
		return s.attachment(rec), nil
	case !errors.Is(err, ErrNotFound):
		return Attachment{}, &PersistError{URL: rawURL, Err: err}
	}

	content, err := s.fetcher.Fetch(ctx, rawURL, fetcher.Options{
		Timeout:  s.config.Timeout,
		MaxBytes: s.config.MaxBytes,
		Headers:  map[string]string{"Accept": "image/*"},
	})
	if err != nil {
		return Attachment{}, &PersistError{URL: rawURL, Err: err}
	}

	mt := mimetype.Detect(content.Body)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Attachment{}, &PersistError{URL: rawURL, Err: fmt.Errorf("%w: %s", ErrNotImage, mt.String())}
	}

	rec = Record{
		SourceURL: rawURL,
		PostID:    ownerID,
		FileName:  fileName(rawURL, ownerID, mt.Extension()),
		MimeType:  mt.String(),
		SizeBytes: int64(len(content.Body)),
		Alt:       alt,
	}

	path := filepath.Join(s.config.Dir, rec.FileName)
	if err := os.WriteFile(path, content.Body, 0o644); err != nil {
		return Attachment{}, &PersistError{URL: rawURL, Err: fmt.Errorf("failed to write media file: %w", err)}
	}

	id, err := s.store.InsertAttachment(ctx, rec)
	if err != nil {
		// A concurrent sideload of the same image may have won the insert.
		if existing, findErr := s.store.FindAttachment(ctx, rawURL, ownerID); findErr == nil {
			return s.attachment(existing), nil
		}
		_ = os.Remove(path)
		return Attachment{}, &PersistError{URL: rawURL, Err: err}
	}
	rec.ID = id

	logger.Debug("image sideloaded",
		"url", rawURL,
		"id", id,
		"post_id", ownerID,
		"type", rec.MimeType,
		"size", humanize.Bytes(uint64(rec.SizeBytes)))

	return s.attachment(rec), nil
}

func (s *Sideloader) attachment(r Record) Attachment {
	return Attachment{ID: r.ID, HTML: s.imageHTML(r)}
}

// imageHTML renders the stored image element.
func (s *Sideloader) imageHTML(r Record) string {
	src := strings.TrimRight(s.config.BaseURL, "/") + "/" + r.FileName
	return fmt.Sprintf(`<img src="%s" alt="%s" class="wp-image-%d"/>`,
		html.EscapeString(src), html.EscapeString(r.Alt), r.ID)
}

func checkURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	return nil
}

// fileName derives a stable file name from the source URL and owner.
func fileName(rawURL string, ownerID int, ext string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%x-%d%s", sum[:8], ownerID, ext)
}
