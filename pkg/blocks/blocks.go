// Package blocks defines the typed content blocks produced by the HTML
// converter and a pure renderer that turns them into block-comment markup.
//
// Block is a closed union: only the types declared in this package satisfy
// it, so callers can switch exhaustively over the concrete types.
package blocks

import "unicode/utf8"

// Kind names a block variant.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
	KindTable     Kind = "table"
	KindImage     Kind = "image"
	KindContainer Kind = "container"
	KindColumns   Kind = "columns"
)

// Block is one typed unit of content.
type Block interface {
	// Kind returns the variant name.
	Kind() Kind

	// Length is the rendered text length in characters. It is only used
	// for column scoring and never serialized.
	Length() int

	block()
}

// LayoutHint carries the class/id keyword matches of a container element.
type LayoutHint struct {
	Layout bool `json:"layout" yaml:"layout"` // grid/row/flex/col family
	Ratio  bool `json:"ratio" yaml:"ratio"`   // fractional widths like 1/2 or 33
}

// Heading is a section heading. Level is 2 or 3 for converted input.
type Heading struct {
	Level int
	Text  string
}

// Paragraph is a run of plain text.
type Paragraph struct {
	Text string
}

// List is an ordered or unordered list of plain-text items.
type List struct {
	Ordered bool
	Items   []string
}

// Quote is a block quotation.
type Quote struct {
	Text string
}

// Table is a grid of plain-text cells. Rows may have different widths.
type Table struct {
	Rows [][]string
}

// Image references an external image. Caption is empty unless the image
// came from a figure with a figcaption.
type Image struct {
	Src     string
	Alt     string
	Caption string
}

// Container wraps the blocks converted from a generic element such as a
// div or section. Containers are transient: the column detector either
// promotes them into Columns or flattens them away.
type Container struct {
	Tag      string
	Children []Block
	Hint     LayoutHint
}

// Columns is a multi-column layout with at least two columns.
type Columns struct {
	Columns [][]Block
}

func (*Heading) Kind() Kind   { return KindHeading }
func (*Paragraph) Kind() Kind { return KindParagraph }
func (*List) Kind() Kind      { return KindList }
func (*Quote) Kind() Kind     { return KindQuote }
func (*Table) Kind() Kind     { return KindTable }
func (*Image) Kind() Kind     { return KindImage }
func (*Container) Kind() Kind { return KindContainer }
func (*Columns) Kind() Kind   { return KindColumns }

func (b *Heading) Length() int   { return textLen(b.Text) }
func (b *Paragraph) Length() int { return textLen(b.Text) }
func (b *Quote) Length() int     { return textLen(b.Text) }

func (b *List) Length() int {
	n := 0
	for _, item := range b.Items {
		n += textLen(item)
	}
	return n
}

func (b *Table) Length() int {
	n := 0
	for _, row := range b.Rows {
		for _, cell := range row {
			n += textLen(cell)
		}
	}
	return n
}

// Length of an image is fixed at 1 so image-only columns still score.
func (*Image) Length() int { return 1 }

func (b *Container) Length() int { return Sum(b.Children) }

func (b *Columns) Length() int {
	n := 0
	for _, col := range b.Columns {
		n += Sum(col)
	}
	return n
}

func (*Heading) block()   {}
func (*Paragraph) block() {}
func (*List) block()      {}
func (*Quote) block()     {}
func (*Table) block()     {}
func (*Image) block()     {}
func (*Container) block() {}
func (*Columns) block()   {}

// Sum returns the total length of the given blocks.
func Sum(bs []Block) int {
	n := 0
	for _, b := range bs {
		n += b.Length()
	}
	return n
}

func textLen(s string) int {
	return utf8.RuneCountInString(s)
}
