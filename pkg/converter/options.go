package converter

import (
	"github.com/jmylchreest/htmlblocks/pkg/settings"
)

// Options controls a single conversion. It is built from the provider's
// defaults and the per-call Option overrides, then normalized, and does not
// change while the conversion runs.
type Options struct {
	ColumnDetection  bool
	ScoreThreshold   float64
	StripAttributes  bool
	AllowlistDomains []string
	PostID           int
	PersistMedia     bool
}

// Option overrides one field of the stored defaults for a single call.
type Option func(*Options)

// WithColumnDetection enables or disables column detection.
func WithColumnDetection(on bool) Option {
	return func(o *Options) { o.ColumnDetection = on }
}

// WithScoreThreshold sets the minimum similarity score for a run of
// containers to become columns. Values outside [0,1] are clamped.
func WithScoreThreshold(t float64) Option {
	return func(o *Options) { o.ScoreThreshold = t }
}

// WithStripAttributes enables or disables stripping of non-essential
// attributes.
func WithStripAttributes(on bool) Option {
	return func(o *Options) { o.StripAttributes = on }
}

// WithAllowlist replaces the iframe domain allowlist.
func WithAllowlist(domains ...string) Option {
	return func(o *Options) { o.AllowlistDomains = append([]string(nil), domains...) }
}

// WithPostID sets the post that owns persisted images.
func WithPostID(id int) Option {
	return func(o *Options) { o.PostID = id }
}

// WithPersistMedia enables image sideloading through the converter's
// Persister.
func WithPersistMedia(on bool) Option {
	return func(o *Options) { o.PersistMedia = on }
}

// resolveOptions applies opts over d and normalizes the result.
func resolveOptions(d settings.Defaults, opts []Option) Options {
	o := Options{
		ColumnDetection:  d.ColumnDetection,
		ScoreThreshold:   d.ScoreThreshold,
		StripAttributes:  d.StripAttributes,
		AllowlistDomains: append([]string(nil), d.AllowlistDomains...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	o.ScoreThreshold = settings.ClampThreshold(o.ScoreThreshold)
	o.AllowlistDomains = settings.NormalizeDomains(o.AllowlistDomains)
	if o.PostID < 0 {
		o.PostID = 0
	}
	return o
}
