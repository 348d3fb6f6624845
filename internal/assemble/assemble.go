// Package assemble lays a digest record out as a sequence of styled text
// insertions against a single growing document index.
package assemble

import (
	"strings"
	"unicode/utf16"

	"github.com/dgallion1/bookdigest/internal/digest"
)

// StartIndex is the index of the first insertable character in a new document.
const StartIndex = 1

// Font is applied to every run.
const Font = "Merriweather"

type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignJustified
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "CENTER"
	case AlignJustified:
		return "JUSTIFIED"
	default:
		return "START"
	}
}

// RGB holds color channels in [0, 1].
type RGB struct {
	Red, Green, Blue float64
}

var (
	Black = RGB{}
	Blue  = RGB{Blue: 1}
)

// Hex returns the color as RRGGBB.
func (c RGB) Hex() string {
	const digits = "0123456789ABCDEF"
	var b [6]byte
	for i, v := range [3]float64{c.Red, c.Green, c.Blue} {
		n := int(min(max(v, 0), 1)*255 + 0.5)
		b[2*i] = digits[n>>4]
		b[2*i+1] = digits[n&0x0F]
	}
	return string(b[:])
}

type Style struct {
	Bold   bool
	Color  RGB
	SizePt int
	Align  Align
}

var (
	titleStyle   = Style{Bold: true, Color: Black, SizePt: 20, Align: AlignCenter}
	authorStyle  = Style{Color: Black, SizePt: 12, Align: AlignCenter}
	labelStyle   = Style{Bold: true, Color: Black, SizePt: 12, Align: AlignStart}
	bodyStyle    = Style{Color: Black, SizePt: 12, Align: AlignJustified}
	listStyle    = Style{Color: Black, SizePt: 12, Align: AlignStart}
	headingStyle = Style{Bold: true, Color: Blue, SizePt: 12, Align: AlignStart}
)

// StyleOp inserts Text at Index and styles it. Indexes count UTF-16 code units.
type StyleOp struct {
	Index int
	Text  string
	Style Style
}

// Len is the length of Text in UTF-16 code units.
func (op StyleOp) Len() int {
	n := 0
	for _, r := range op.Text {
		n += utf16.RuneLen(r)
	}
	return n
}

// End is the index just past the inserted text.
func (op StyleOp) End() int { return op.Index + op.Len() }

// StyleRange is the half-open range the style covers. It leaves out the
// final inserted character, which is always a line break.
func (op StyleOp) StyleRange() (start, end int) {
	return op.Index, op.End() - 1
}

// Document is an assembled record ready for a document store.
type Document struct {
	Title string
	Ops   []StyleOp
	End   int
}

type builder struct {
	cursor int
	ops    []StyleOp
}

func (b *builder) add(text string, style Style) {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "- ", "• ")
	op := StyleOp{Index: b.cursor, Text: text, Style: style}
	b.ops = append(b.ops, op)
	b.cursor = op.End()
}

func (b *builder) field(label, body string, style Style) {
	if body == "" {
		return
	}
	b.add(label+":\n", labelStyle)
	b.add(body+"\n\n", style)
}

// Assemble converts rec into ordered, contiguous style operations. Empty
// optional fields produce no blocks.
func Assemble(rec *digest.Record) Document {
	b := &builder{cursor: StartIndex}
	b.add(rec.BookName+"\n", titleStyle)
	b.add(rec.Author+"\n\n", authorStyle)

	b.field("Super Summary", rec.SuperSummary, bodyStyle)
	b.field("Abstract", rec.Abstract, bodyStyle)
	b.field("Key Points", rec.KeyPoints, listStyle)

	if len(rec.Sections) > 0 {
		b.add("Summary:\n", labelStyle)
		for _, s := range rec.Sections {
			if heading, body, ok := s.Heading(); ok {
				b.add(heading+"\n", headingStyle)
				b.add(body+"\n\n", bodyStyle)
				continue
			}
			b.add(s.Content+"\n\n", bodyStyle)
		}
	}

	b.field("Writer's Profile", rec.WriterProfile, bodyStyle)
	if rec.Story != "" {
		b.add("Story:\n", labelStyle)
		b.add(rec.Story+"\n", bodyStyle)
	}

	return Document{
		Title: rec.BookName + " - Summary",
		Ops:   b.ops,
		End:   b.cursor,
	}
}
