// Package converter turns fragments of static HTML into block-comment
// markup.
//
// A conversion runs four stages: the sanitizer copies the parsed tree
// without disallowed elements and attributes, the walker turns the copy
// into typed blocks, the column detector groups similar sibling containers
// into columns, and the serializer renders the result with package blocks.
// Images can optionally be persisted through a media.Persister.
package converter

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/pkg/blocks"
	"github.com/jmylchreest/htmlblocks/pkg/media"
	"github.com/jmylchreest/htmlblocks/pkg/settings"
)

// Converter converts HTML using defaults from a settings.Provider.
// It holds no per-call state and is safe for concurrent use when its
// Persister is.
type Converter struct {
	settings  settings.Provider
	persister media.Persister
}

// New creates a Converter. A nil provider uses settings.Default. The
// persister may be nil when images are never persisted.
func New(provider settings.Provider, persister media.Persister) *Converter {
	if provider == nil {
		provider = settings.Static(settings.Default())
	}
	return &Converter{
		settings:  provider,
		persister: persister,
	}
}

// Result contains the output of a conversion.
type Result struct {
	// Markup is the serialized block markup.
	Markup string `json:"blocks" yaml:"blocks"`

	// The effective options of the conversion.
	ColumnDetection bool    `json:"column_detection" yaml:"column_detection"`
	StripAttributes bool    `json:"strip_attributes" yaml:"strip_attributes"`
	ScoreThreshold  float64 `json:"score_threshold" yaml:"score_threshold"`

	// Blocks is the final block sequence that Markup was rendered from.
	Blocks []blocks.Block `json:"-" yaml:"-"`

	// Stats contains metrics about what was done.
	Stats *Stats `json:"stats" yaml:"stats"`

	// Warnings contains non-fatal issues encountered.
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(phase, message, context string) {
	r.Warnings = append(r.Warnings, Warning{
		Phase:   phase,
		Message: message,
		Context: context,
	})
}

// BlockMarkup returns the serialized markup.
func (r *Result) BlockMarkup() string {
	return r.Markup
}

// HasWarnings returns true if any warnings were recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// conversion is the state of a single call.
type conversion struct {
	opts      Options
	persister media.Persister
	result    *Result
}

// Convert converts input to block markup. It fails only for blank input
// (ErrEmptyInput) or input that cannot be parsed (ErrParse); everything
// else that cannot be converted is dropped.
func (c *Converter) Convert(ctx context.Context, input string, opts ...Option) (*Result, error) {
	start := time.Now()

	cv, err := c.analyze(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	result := cv.result

	serializeStart := time.Now()
	result.Markup = cv.serialize(ctx, result.Blocks)
	result.Stats.SerializeDuration = time.Since(serializeStart)
	result.Stats.OutputBytes = len(result.Markup)
	result.Stats.TotalDuration = time.Since(start)

	logger.Debug("html conversion complete",
		"input_bytes", result.Stats.InputBytes,
		"output_bytes", result.Stats.OutputBytes,
		"columns", result.Stats.ColumnsFormed,
		"warnings", len(result.Warnings),
		"duration", result.Stats.TotalDuration)

	return result, nil
}

// Analyze runs the conversion without serializing. The returned Result
// has Blocks and Stats but no Markup, and no image is persisted.
func (c *Converter) Analyze(ctx context.Context, input string, opts ...Option) (*Result, error) {
	start := time.Now()
	cv, err := c.analyze(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	cv.result.Stats.TotalDuration = time.Since(start)
	return cv.result, nil
}

func (c *Converter) analyze(ctx context.Context, input string, opts []Option) (*conversion, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := resolveOptions(c.settings.Defaults(), opts)
	cv := &conversion{
		opts:      o,
		persister: c.persister,
		result: &Result{
			ColumnDetection: o.ColumnDetection,
			StripAttributes: o.StripAttributes,
			ScoreThreshold:  o.ScoreThreshold,
			Stats:           NewStats(),
		},
	}
	stats := cv.result.Stats
	stats.InputBytes = len(input)

	logger.Debug("html conversion starting",
		"input_bytes", len(input),
		"column_detection", o.ColumnDetection,
		"score_threshold", o.ScoreThreshold,
		"strip_attributes", o.StripAttributes,
		"persist_media", o.PersistMedia)

	parseStart := time.Now()
	nodes, err := parseInput(input)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(cv.sanitize(nodes))
	stats.ParseDuration = time.Since(parseStart)

	walkStart := time.Now()
	cv.result.Blocks = cv.detectColumns(cv.walk(doc.Selection))
	stats.WalkDuration = time.Since(walkStart)
	stats.countBlocks(cv.result.Blocks)

	return cv, nil
}
