// Package editor plans and applies style-preserving text and table
// replacements.
package editor

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
	"github.com/docpatch/pdfstyle-golang/pkg/style"
)

// fallback font resource names, chosen to avoid colliding with
// resource names generators actually emit
const (
	resHelvetica            = "PSHv"
	resHelveticaBold        = "PSHvB"
	resHelveticaOblique     = "PSHvO"
	resHelveticaBoldOblique = "PSHvBO"
)

// Planner converts container-level replacements into page content
// edits. Replacement text is drawn at its natural width, without
// reflowing neighbors; an edit wider than the text it replaces is
// logged, not truncated.
type Planner struct {
	doc pdf.Document
	log *zap.Logger
}

// NewPlanner creates a planner for the given document.
func NewPlanner(doc pdf.Document, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{doc: doc, log: log}
}

// PlanText builds the edit that replaces a container's text in place.
// The old region is cleared; the new text starts at the container's
// origin on its original baseline. An empty replacement clears only.
func (p *Planner) PlanText(c *style.TextContainer, newText string, preserveStyle bool) pdf.ContentEdit {
	edit := pdf.ContentEdit{
		PageIndex: c.PageIndex,
		Clear:     []pdf.BoundingBox{c.BBox.Expand(0.5)},
	}
	if newText == "" {
		return edit
	}

	st := c.Style
	if !preserveStyle {
		st = style.TextStyle{FontName: "Helvetica", FontSize: c.Style.FontSize, Color: pdf.Black}
	}

	res, fallback := p.fontFor(c, preserveStyle)
	if fallback != nil {
		edit.Fonts = append(edit.Fonts, *fallback)
	}

	if w := estimateTextWidth(newText, st.FontSize); w > c.BBox.Width()+0.5 {
		p.log.Warn("replacement wider than original text",
			zap.Int("page", c.PageIndex),
			zap.String("text", newText),
			zap.Float64("width", w),
			zap.Float64("available", c.BBox.Width()))
	}

	edit.Ops = drawTextOps(res, st, c.BBox.X0, c.Baseline, newText)
	return edit
}

// fontFor picks the font resource replacement text is drawn with. The
// original resource is reused only when its encoding can render plain
// text; otherwise a standard font matching the style is substituted.
func (p *Planner) fontFor(c *style.TextContainer, preserveStyle bool) (string, *pdf.FallbackFont) {
	if preserveStyle && c.FontRes != "" && p.reusableFont(c) {
		return c.FontRes, nil
	}

	bold := c.Style.Bold
	italic := c.Style.Italic
	if !preserveStyle {
		bold, italic = false, false
	}

	switch {
	case bold && italic:
		return resHelveticaBoldOblique, &pdf.FallbackFont{Res: resHelveticaBoldOblique, BaseFont: "Helvetica-BoldOblique"}
	case bold:
		return resHelveticaBold, &pdf.FallbackFont{Res: resHelveticaBold, BaseFont: "Helvetica-Bold"}
	case italic:
		return resHelveticaOblique, &pdf.FallbackFont{Res: resHelveticaOblique, BaseFont: "Helvetica-Oblique"}
	default:
		return resHelvetica, &pdf.FallbackFont{Res: resHelvetica, BaseFont: "Helvetica"}
	}
}

// reusableFont reports whether the container's original font resource
// accepts single-byte text. CID fonts behind Identity encodings do
// not.
func (p *Planner) reusableFont(c *style.TextContainer) bool {
	page, err := p.doc.Page(c.PageIndex)
	if err != nil {
		return false
	}
	fp, ok := page.(interface{ Fonts() map[string]*pdf.FontInfo })
	if !ok {
		return false
	}
	font := fp.Fonts()[c.FontRes]
	if font == nil {
		return false
	}
	return !strings.HasPrefix(font.Encoding, "Identity")
}

// PlanTable builds the edits that swap a table's content for new
// data. Fewer rows or columns clear the leftover cells while keeping
// the grid geometry; extra rows extend downward with the pitch and
// style of the last row, extra columns extend rightward from the last
// column.
func (p *Planner) PlanTable(t *style.Table, data [][]string, preserveStyle bool) []pdf.ContentEdit {
	newRows := len(data)
	newCols := 0
	for _, row := range data {
		newCols = max(newCols, len(row))
	}

	rows := max(newRows, t.NumRows())
	cols := max(newCols, t.NumCols())

	var edits []pdf.ContentEdit
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var text string
			if r < len(data) && c < len(data[r]) {
				text = data[r][c]
			}

			cell := t.Cell(r, c)
			if cell == nil {
				if text == "" {
					continue
				}
				cell = p.extrapolatedCell(t, r, c)
			}
			edits = append(edits, p.PlanText(cell, text, preserveStyle))
		}
	}
	return edits
}

// extrapolatedCell synthesizes a placement for a position outside the
// detected grid, inheriting geometry and style from the last row and
// column.
func (p *Planner) extrapolatedCell(t *style.Table, row, col int) *style.TextContainer {
	lastRow := min(row, t.NumRows()-1)
	lastCol := min(col, t.NumCols()-1)
	ref := t.Cell(lastRow, lastCol)

	baseline := ref.Baseline
	if row > lastRow {
		baseline -= p.rowPitch(t) * float64(row-lastRow)
	}

	x := ref.BBox.X0
	if col > lastCol {
		x += p.colPitch(t) * float64(col-lastCol)
	}

	height := ref.BBox.Height()
	return &style.TextContainer{
		BBox: pdf.BoundingBox{
			X0: x, Y0: baseline,
			X1: x, Y1: baseline + height,
		},
		PageIndex: ref.PageIndex,
		Style:     ref.Style,
		FontRes:   ref.FontRes,
		Baseline:  baseline,
	}
}

// rowPitch is the baseline distance between consecutive rows.
func (p *Planner) rowPitch(t *style.Table) float64 {
	if t.NumRows() >= 2 {
		pitch := t.Cell(t.NumRows()-2, 0).Baseline - t.Cell(t.NumRows()-1, 0).Baseline
		if pitch > 0 {
			return pitch
		}
	}
	return 1.5 * t.Cell(0, 0).Style.FontSize
}

// colPitch is the left-edge distance between consecutive columns.
func (p *Planner) colPitch(t *style.Table) float64 {
	if t.NumCols() >= 2 {
		pitch := t.Cell(0, t.NumCols()-1).BBox.X0 - t.Cell(0, t.NumCols()-2).BBox.X0
		if pitch > 0 {
			return pitch
		}
	}
	return 4 * t.Cell(0, 0).Style.FontSize
}

// drawTextOps emits the operators for one run of text.
func drawTextOps(res string, st style.TextStyle, x, baseline float64, text string) []byte {
	r := float64(st.Color.R) / 255
	g := float64(st.Color.G) / 255
	b := float64(st.Color.B) / 255

	var sb strings.Builder
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "/%s %.2f Tf\n", res, st.FontSize)
	fmt.Fprintf(&sb, "%.3f %.3f %.3f rg\n", r, g, b)
	fmt.Fprintf(&sb, "%.2f %.2f Td\n", x, baseline)
	fmt.Fprintf(&sb, "(%s) Tj\n", escapeTextString(text))
	sb.WriteString("ET\n")
	return []byte(sb.String())
}

// escapeTextString escapes the characters with meaning inside PDF
// string literals. Runes outside Latin-1 are written as octal
// WinAnsi-range bytes where possible and dropped otherwise.
func escapeTextString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		default:
			if r < 0x80 {
				sb.WriteRune(r)
			} else if r <= 0xFF {
				fmt.Fprintf(&sb, "\\%03o", r)
			}
		}
	}
	return sb.String()
}

// estimateTextWidth approximates the drawn width of text, counting
// wide runes double.
func estimateTextWidth(s string, fontSize float64) float64 {
	return float64(runewidth.StringWidth(s)) * 0.5 * fontSize
}
