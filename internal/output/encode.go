package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// documentWriter buffers items and encodes them as one document on Flush:
// a single item on its own, several as a list.
type documentWriter struct {
	w      *bufio.Writer
	items  []any
	encode func(w io.Writer, v any) error
}

func (d *documentWriter) Write(item any) error {
	d.items = append(d.items, item)
	return nil
}

func (d *documentWriter) Flush() error {
	if len(d.items) == 0 {
		return d.w.Flush()
	}
	var v any = d.items
	if len(d.items) == 1 {
		v = d.items[0]
	}
	if err := d.encode(d.w, v); err != nil {
		return err
	}
	d.items = d.items[:0]
	return d.w.Flush()
}

// NewJSONWriter creates a writer that emits one JSON document.
func NewJSONWriter(w io.Writer, pretty bool, indent string) Writer {
	return &documentWriter{
		w: bufio.NewWriter(w),
		encode: func(w io.Writer, v any) error {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			if pretty {
				enc.SetIndent("", indent)
			}
			return enc.Encode(v)
		},
	}
}

// NewYAMLWriter creates a writer that emits one YAML document.
func NewYAMLWriter(w io.Writer) Writer {
	return &documentWriter{
		w: bufio.NewWriter(w),
		encode: func(w io.Writer, v any) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// streamWriter writes every item as soon as it arrives.
type streamWriter struct {
	w      *bufio.Writer
	encode func(w *bufio.Writer, v any) error
}

func (s *streamWriter) Write(item any) error {
	if err := s.encode(s.w, item); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *streamWriter) Flush() error {
	return s.w.Flush()
}

// NewJSONLWriter creates a writer that emits one compact JSON object per line.
func NewJSONLWriter(w io.Writer) Writer {
	return &streamWriter{
		w: bufio.NewWriter(w),
		encode: func(w *bufio.Writer, v any) error {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			return enc.Encode(v)
		},
	}
}

// NewMarkupWriter creates a writer that emits the block markup of each
// item followed by a newline. Items must implement Marked or be strings.
func NewMarkupWriter(w io.Writer) Writer {
	return &streamWriter{
		w: bufio.NewWriter(w),
		encode: func(w *bufio.Writer, v any) error {
			var markup string
			switch m := v.(type) {
			case Marked:
				markup = m.BlockMarkup()
			case string:
				markup = m
			default:
				return fmt.Errorf("cannot write %T as markup", v)
			}
			if markup == "" {
				return nil
			}
			if _, err := w.WriteString(markup); err != nil {
				return err
			}
			return w.WriteByte('\n')
		},
	}
}
