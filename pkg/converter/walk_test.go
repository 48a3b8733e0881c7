package converter

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

// walkHTML sanitizes and walks input without column detection.
func walkHTML(t *testing.T, input string, opts Options) []blocks.Block {
	t.Helper()
	cv := newTestConversion(opts)
	nodes, err := parseFragment(input)
	if err != nil {
		t.Fatalf("parseFragment() error = %v", err)
	}
	return cv.walk(goquery.NewDocumentFromNode(cv.sanitize(nodes)).Selection)
}

func TestWalk(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []blocks.Block
	}{
		{
			name: "loose text collapses whitespace",
			html: "  some \n\t text  ",
			want: []blocks.Block{&blocks.Paragraph{Text: "some text"}},
		},
		{
			name: "heading levels are compressed",
			html: `<h1>A</h1><h2>B</h2><h3>C</h3><h6> D  E </h6><h2>  </h2>`,
			want: []blocks.Block{
				&blocks.Heading{Level: 2, Text: "A"},
				&blocks.Heading{Level: 2, Text: "B"},
				&blocks.Heading{Level: 3, Text: "C"},
				&blocks.Heading{Level: 3, Text: "D E"},
			},
		},
		{
			name: "paragraphs and spans",
			html: `<p>one <b>two</b></p><span>three</span><p> </p>`,
			want: []blocks.Block{
				&blocks.Paragraph{Text: "one two"},
				&blocks.Paragraph{Text: "three"},
			},
		},
		{
			name: "lists keep direct non-empty items",
			html: `<ol><li> one </li><li></li><li>two</li></ol><ul><li> </li></ul>`,
			want: []blocks.Block{
				&blocks.List{Ordered: true, Items: []string{"one", "two"}},
			},
		},
		{
			name: "quote",
			html: `<blockquote><p>Quoted</p> text</blockquote><blockquote></blockquote>`,
			want: []blocks.Block{&blocks.Quote{Text: "Quoted text"}},
		},
		{
			name: "image requires src",
			html: `<img src=" https://x.test/a.png " alt="A"><img alt="none"><img src="">`,
			want: []blocks.Block{&blocks.Image{Src: "https://x.test/a.png", Alt: "A"}},
		},
		{
			name: "table rows without tbody",
			html: `<table><tr><th>H</th><td> a  b </td></tr><tr></tr><tr><td></td></tr></table><table></table>`,
			want: []blocks.Block{&blocks.Table{Rows: [][]string{{"H", "a b"}, {""}}}},
		},
		{
			name: "figure with caption",
			html: `<figure><img src="/a.png" alt="A"><figcaption> Cap  </figcaption></figure>`,
			want: []blocks.Block{&blocks.Image{Src: "/a.png", Alt: "A", Caption: "Cap"}},
		},
		{
			name: "caption-only figure is dropped",
			html: `<figure><figcaption>Only caption</figcaption></figure>`,
			want: nil,
		},
		{
			name: "generic elements become containers",
			html: `<div id="main"><section><p>x</p></section><br></div><div></div>`,
			want: []blocks.Block{
				&blocks.Container{Tag: "div", Children: []blocks.Block{
					&blocks.Container{Tag: "section", Children: []blocks.Block{
						&blocks.Paragraph{Text: "x"},
					}},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := walkHTML(t, tt.html, Options{StripAttributes: true})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("walk() = %s, want %s", describe(got), describe(tt.want))
			}
		})
	}
}

func TestWalk_LayoutHints(t *testing.T) {
	input := `<div class="wp-col-1/2" id="x"><p>a</p></div><div class="content"><p>b</p></div>`

	t.Run("read from kept attributes", func(t *testing.T) {
		got := walkHTML(t, input, Options{StripAttributes: false})
		if len(got) != 2 {
			t.Fatalf("expected 2 containers, got %d", len(got))
		}
		if h := got[0].(*blocks.Container).Hint; !h.Layout || !h.Ratio {
			t.Errorf("first hint = %+v, want layout and ratio", h)
		}
		if h := got[1].(*blocks.Container).Hint; h.Layout || h.Ratio {
			t.Errorf("second hint = %+v, want none", h)
		}
	})

	t.Run("lost when attributes are stripped", func(t *testing.T) {
		got := walkHTML(t, input, Options{StripAttributes: true})
		for _, b := range got {
			if h := b.(*blocks.Container).Hint; h.Layout || h.Ratio {
				t.Errorf("hint = %+v, want none", h)
			}
		}
	})
}

func TestLayoutHint(t *testing.T) {
	tests := []struct {
		html string
		want blocks.LayoutHint
	}{
		{`<div class="Grid"></div>`, blocks.LayoutHint{Layout: true}},
		{`<div id="main-row"></div>`, blocks.LayoutHint{Layout: true}},
		{`<div class="w-50"></div>`, blocks.LayoutHint{Ratio: true}},
		{`<div class="col-md-6/12"></div>`, blocks.LayoutHint{Layout: true, Ratio: true}},
		{`<div class="content" id="article"></div>`, blocks.LayoutHint{}},
		{`<div></div>`, blocks.LayoutHint{}},
	}

	for _, tt := range tests {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := layoutHint(doc.Find("div").First()); got != tt.want {
			t.Errorf("layoutHint(%s) = %+v, want %+v", tt.html, got, tt.want)
		}
	}
}

func describe(bs []blocks.Block) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		if c, ok := b.(*blocks.Container); ok {
			parts = append(parts, c.Tag+"{"+describe(c.Children)+"}")
			continue
		}
		parts = append(parts, blocks.Render(b))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
