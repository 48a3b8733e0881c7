package converter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

// Stats captures what a conversion did.
type Stats struct {
	InputBytes  int `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int `json:"output_bytes" yaml:"output_bytes"`

	// Sanitizer
	ElementsRemoved   map[string]int `json:"elements_removed" yaml:"elements_removed"` // tag -> count
	AttributesRemoved int            `json:"attributes_removed" yaml:"attributes_removed"`
	IframesRemoved    int            `json:"iframes_removed" yaml:"iframes_removed"`

	// Walker and column detector
	Blocks        map[blocks.Kind]int `json:"blocks" yaml:"blocks"` // final kind -> count
	ColumnsFormed int                 `json:"columns_formed" yaml:"columns_formed"`
	Flattened     int                 `json:"containers_flattened" yaml:"containers_flattened"`

	// Serializer
	ImagesPersisted int `json:"images_persisted" yaml:"images_persisted"`
	ImagesDropped   int `json:"images_dropped" yaml:"images_dropped"`

	// Timing
	ParseDuration     time.Duration `json:"parse_duration_ms" yaml:"parse_duration_ms"`
	WalkDuration      time.Duration `json:"walk_duration_ms" yaml:"walk_duration_ms"`
	SerializeDuration time.Duration `json:"serialize_duration_ms" yaml:"serialize_duration_ms"`
	TotalDuration     time.Duration `json:"total_duration_ms" yaml:"total_duration_ms"`
}

// NewStats creates a new Stats instance with initialized maps.
func NewStats() *Stats {
	return &Stats{
		ElementsRemoved: make(map[string]int),
		Blocks:          make(map[blocks.Kind]int),
	}
}

// RecordRemoval records that an element was removed.
func (s *Stats) RecordRemoval(tag string) {
	s.ElementsRemoved[strings.ToLower(tag)]++
}

// TotalElementsRemoved returns the sum of all removed elements.
func (s *Stats) TotalElementsRemoved() int {
	total := 0
	for _, count := range s.ElementsRemoved {
		total += count
	}
	return total
}

// countBlocks tallies bs by kind, descending into columns.
func (s *Stats) countBlocks(bs []blocks.Block) {
	for _, b := range bs {
		s.Blocks[b.Kind()]++
		if c, ok := b.(*blocks.Columns); ok {
			for _, col := range c.Columns {
				s.countBlocks(col)
			}
		}
	}
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Size: %d -> %d bytes\n", s.InputBytes, s.OutputBytes))

	sb.WriteString(fmt.Sprintf("Elements removed: %d", s.TotalElementsRemoved()))
	if len(s.ElementsRemoved) > 0 {
		sb.WriteString(" (")
		sb.WriteString(joinCounts(s.ElementsRemoved))
		sb.WriteString(")")
	}
	sb.WriteString("\n")

	if s.AttributesRemoved > 0 {
		sb.WriteString(fmt.Sprintf("Attributes removed: %d\n", s.AttributesRemoved))
	}
	if s.IframesRemoved > 0 {
		sb.WriteString(fmt.Sprintf("Iframes removed: %d\n", s.IframesRemoved))
	}

	if len(s.Blocks) > 0 {
		counts := make(map[string]int, len(s.Blocks))
		for k, n := range s.Blocks {
			counts[string(k)] = n
		}
		sb.WriteString("Blocks: ")
		sb.WriteString(joinCounts(counts))
		sb.WriteString("\n")
	}

	if s.ColumnsFormed > 0 {
		sb.WriteString(fmt.Sprintf("Columns formed: %d\n", s.ColumnsFormed))
	}
	if s.ImagesPersisted > 0 || s.ImagesDropped > 0 {
		sb.WriteString(fmt.Sprintf("Images: %d persisted, %d dropped\n", s.ImagesPersisted, s.ImagesDropped))
	}

	sb.WriteString(fmt.Sprintf("Timing: parse=%v, walk=%v, serialize=%v, total=%v\n",
		s.ParseDuration.Round(time.Microsecond),
		s.WalkDuration.Round(time.Microsecond),
		s.SerializeDuration.Round(time.Microsecond),
		s.TotalDuration.Round(time.Microsecond)))

	return sb.String()
}

func joinCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// Warning represents a non-fatal issue encountered during conversion.
type Warning struct {
	Phase   string `json:"phase" yaml:"phase"`     // "sanitize", "walk", "serialize"
	Message string `json:"message" yaml:"message"` // Human-readable description
	Context string `json:"context" yaml:"context"` // Element or URL that caused the issue
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Phase, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Phase, w.Message)
}
