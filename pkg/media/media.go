// Package media persists remote images referenced by converted content.
//
// The converter depends only on the Persister interface. Sideloader is the
// bundled implementation: it downloads an image, checks its type and size,
// writes it under a media directory and records it in a SQLite catalogue.
package media

import (
	"context"
	"errors"
	"fmt"
)

// Attachment is a locally stored image.
type Attachment struct {
	ID int64 `json:"id"`

	// HTML is the image element that references the local copy.
	HTML string `json:"html"`
}

// Persister stores a remote image on behalf of an owner (a post id) and
// returns the local attachment. Implementations must be safe for
// concurrent use when the converter is shared between requests.
type Persister interface {
	Sideload(ctx context.Context, url string, ownerID int, alt string) (Attachment, error)
}

// PersisterFunc adapts a function to the Persister interface.
type PersisterFunc func(ctx context.Context, url string, ownerID int, alt string) (Attachment, error)

// Sideload calls f.
func (f PersisterFunc) Sideload(ctx context.Context, url string, ownerID int, alt string) (Attachment, error) {
	return f(ctx, url, ownerID, alt)
}

// Sentinel errors for media persistence.
var (
	ErrNotImage       = errors.New("downloaded file is not an image")
	ErrUnsupportedURL = errors.New("unsupported image URL")
	ErrNotFound       = errors.New("attachment not found")
)

// PersistError reports a failed sideload of a single image.
type PersistError struct {
	URL string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("sideload %s: %v", e.URL, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
