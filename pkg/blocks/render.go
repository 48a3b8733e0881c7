package blocks

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Separator joins rendered blocks.
const Separator = "\n\n"

// ImageFunc renders an image block. Returning an empty string drops the
// image from the output.
type ImageFunc func(img *Image) string

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// Render returns the markup for a single block, linking images externally.
// Containers render to the empty string.
func Render(b Block) string {
	return RenderWith(b, nil)
}

// RenderWith renders b, delegating images to images when it is non-nil.
// Columns pass images down to their inner blocks.
func RenderWith(b Block, images ImageFunc) string {
	switch b := b.(type) {
	case *Heading:
		level := b.Level
		if level < 1 || level > 6 {
			level = 2
		}
		return fmt.Sprintf("<!-- wp:heading {\"level\":%d} -->\n<h%d>%s</h%d>\n<!-- /wp:heading -->",
			level, level, escapeText(b.Text), level)

	case *Paragraph:
		return fmt.Sprintf("<!-- wp:paragraph -->\n<p>%s</p>\n<!-- /wp:paragraph -->", escapeText(b.Text))

	case *List:
		if len(b.Items) == 0 {
			return ""
		}
		tag := "ul"
		if b.Ordered {
			tag = "ol"
		}
		var items strings.Builder
		for _, item := range b.Items {
			items.WriteString("<li>")
			items.WriteString(escapeText(item))
			items.WriteString("</li>")
		}
		return fmt.Sprintf("<!-- wp:list {\"ordered\":%t} -->\n<%s>%s</%s>\n<!-- /wp:list -->",
			b.Ordered, tag, items.String(), tag)

	case *Quote:
		return fmt.Sprintf("<!-- wp:quote -->\n<blockquote class=\"wp-block-quote\"><p>%s</p></blockquote>\n<!-- /wp:quote -->",
			escapeText(b.Text))

	case *Table:
		if len(b.Rows) == 0 {
			return ""
		}
		var rows strings.Builder
		for _, row := range b.Rows {
			rows.WriteString("<tr>")
			for _, cell := range row {
				rows.WriteString("<td>")
				rows.WriteString(escapeText(cell))
				rows.WriteString("</td>")
			}
			rows.WriteString("</tr>")
		}
		return fmt.Sprintf("<!-- wp:table -->\n<figure class=\"wp-block-table\"><table><tbody>%s</tbody></table></figure>\n<!-- /wp:table -->",
			rows.String())

	case *Image:
		if images != nil {
			return images(b)
		}
		return LinkedImage(b)

	case *Columns:
		return renderColumns(b, images)
	}

	return ""
}

// RenderAll renders each block and joins the non-empty results.
func RenderAll(bs []Block, images ImageFunc) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		if s := RenderWith(b, images); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Separator)
}

func renderColumns(b *Columns, images ImageFunc) string {
	if len(b.Columns) == 0 {
		return ""
	}
	var cols strings.Builder
	for _, col := range b.Columns {
		cols.WriteString("<!-- wp:column -->\n<div class=\"wp-block-column\">")
		cols.WriteString(RenderAll(col, images))
		cols.WriteString("</div>\n<!-- /wp:column -->")
	}
	return fmt.Sprintf("<!-- wp:columns -->\n<div class=\"wp-block-columns\">%s</div>\n<!-- /wp:columns -->", cols.String())
}

type linkedImageAttrs struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// LinkedImage renders an image that points at its original source.
func LinkedImage(img *Image) string {
	src := SafeURL(img.Src)
	if src == "" {
		return ""
	}
	alt := collapse(img.Alt)
	inner := fmt.Sprintf("<img src=\"%s\" alt=\"%s\"/>", html.EscapeString(src), html.EscapeString(alt))
	inner += figcaption(img.Caption)
	return fmt.Sprintf("<!-- wp:image %s -->\n<figure class=\"wp-block-image\">%s</figure>\n<!-- /wp:image -->",
		attrJSON(linkedImageAttrs{URL: src, Alt: alt}), inner)
}

type persistedImageAttrs struct {
	ID              int64  `json:"id"`
	SizeSlug        string `json:"sizeSlug"`
	LinkDestination string `json:"linkDestination"`
}

// PersistedImage renders an image stored locally as attachment id.
// imageHTML is the stored image element, emitted as is.
func PersistedImage(img *Image, id int64, imageHTML string) string {
	if imageHTML == "" {
		return ""
	}
	inner := imageHTML + figcaption(img.Caption)
	return fmt.Sprintf("<!-- wp:image %s -->\n%s\n<!-- /wp:image -->",
		attrJSON(persistedImageAttrs{ID: id, SizeSlug: "large", LinkDestination: "none"}), inner)
}

// SafeURL returns raw trimmed when it is a relative, protocol-relative,
// http or https URL, and the empty string otherwise.
func SafeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return raw
	default:
		return ""
	}
}

func figcaption(caption string) string {
	caption = collapse(caption)
	if caption == "" {
		return ""
	}
	return "<figcaption>" + escapeText(caption) + "</figcaption>"
}

// escapeText strips anything that looks like a tag and escapes the rest.
func escapeText(s string) string {
	return html.EscapeString(tagRegex.ReplaceAllString(s, ""))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// attrJSON encodes block attributes for a block comment. A literal "--"
// would terminate the comment early, so it is escaped.
func attrJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return strings.ReplaceAll(string(data), "--", `\u002d\u002d`)
}
