package converter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

// walk converts the child nodes of sel into block candidates, depth first.
// Generic elements become Containers that the column detector resolves.
func (cv *conversion) walk(sel *goquery.Selection) []blocks.Block {
	var out []blocks.Block
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if b := cv.walkNode(s); b != nil {
			out = append(out, b)
		}
	})
	return out
}

func (cv *conversion) walkNode(s *goquery.Selection) blocks.Block {
	n := s.Get(0)
	switch n.Type {
	case html.TextNode:
		if text := collapse(n.Data); text != "" {
			return &blocks.Paragraph{Text: text}
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}

	switch tag := goquery.NodeName(s); tag {
	case "h1", "h2":
		return heading(2, s)
	case "h3", "h4", "h5", "h6":
		return heading(3, s)

	case "p", "span":
		if text := collapse(s.Text()); text != "" {
			return &blocks.Paragraph{Text: text}
		}
		return nil

	case "ul", "ol":
		return list(tag == "ol", s)

	case "blockquote":
		if text := collapse(s.Text()); text != "" {
			return &blocks.Quote{Text: text}
		}
		return nil

	case "img":
		return image(s)

	case "table":
		return table(s)

	case "figure":
		return figure(s)

	default:
		children := cv.walk(s)
		if len(children) == 0 {
			return nil
		}
		return &blocks.Container{Tag: tag, Children: children, Hint: layoutHint(s)}
	}
}

func heading(level int, s *goquery.Selection) blocks.Block {
	text := collapse(s.Text())
	if text == "" {
		return nil
	}
	return &blocks.Heading{Level: level, Text: text}
}

// list keeps the trimmed text of each direct li child.
func list(ordered bool, s *goquery.Selection) blocks.Block {
	var items []string
	s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if text := strings.TrimSpace(li.Text()); text != "" {
			items = append(items, text)
		}
	})
	if len(items) == 0 {
		return nil
	}
	return &blocks.List{Ordered: ordered, Items: items}
}

func image(s *goquery.Selection) blocks.Block {
	src := strings.TrimSpace(s.AttrOr("src", ""))
	if src == "" {
		return nil
	}
	return &blocks.Image{Src: src, Alt: s.AttrOr("alt", "")}
}

// table reads every tr below the table, so rows outside a tbody are kept.
func table(s *goquery.Selection) blocks.Block {
	var rows [][]string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapse(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return nil
	}
	return &blocks.Table{Rows: rows}
}

// figure yields the image of its first direct img child, captioned by the
// first direct figcaption. A figure without an image is dropped.
func figure(s *goquery.Selection) blocks.Block {
	b := image(s.ChildrenFiltered("img").First())
	if b == nil {
		return nil
	}
	img := b.(*blocks.Image)
	img.Caption = strings.TrimSpace(s.ChildrenFiltered("figcaption").First().Text())
	return img
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
