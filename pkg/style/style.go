// Package style turns raw positioned characters into styled text
// containers and tables, the units the scraping and editing layers
// operate on.
package style

import (
	"fmt"
	"math"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
)

// sizeTolerance absorbs float drift when comparing font sizes.
const sizeTolerance = 0.05

// TextStyle is the visual identity of a run of text.
type TextStyle struct {
	FontName string
	FontSize float64
	Color    pdf.Color
	Bold     bool
	Italic   bool
}

// Equal reports whether two styles render identically. Font sizes
// within sizeTolerance points count as equal.
func (s TextStyle) Equal(other TextStyle) bool {
	return s.FontName == other.FontName &&
		math.Abs(s.FontSize-other.FontSize) <= sizeTolerance &&
		s.Color == other.Color &&
		s.Bold == other.Bold &&
		s.Italic == other.Italic
}

// Key returns a grouping key that collapses styles Equal treats as
// the same.
func (s TextStyle) Key() string {
	return fmt.Sprintf("%s|%.1f|%d,%d,%d|%t|%t",
		s.FontName, s.FontSize, s.Color.R, s.Color.G, s.Color.B, s.Bold, s.Italic)
}

func (s TextStyle) String() string {
	weight := "regular"
	switch {
	case s.Bold && s.Italic:
		weight = "bold italic"
	case s.Bold:
		weight = "bold"
	case s.Italic:
		weight = "italic"
	}
	return fmt.Sprintf("%s %.1fpt %s rgb(%d,%d,%d)",
		s.FontName, s.FontSize, weight, s.Color.R, s.Color.G, s.Color.B)
}

func styleFromChar(c pdf.CharObject) TextStyle {
	return TextStyle{
		FontName: c.BaseFont,
		FontSize: c.FontSize,
		Color:    c.Color,
		Bold:     c.Bold,
		Italic:   c.Italic,
	}
}

// TextContainer is a contiguous run of same-styled text on one page.
// Coordinates use PDF space, origin at the bottom-left of the page.
type TextContainer struct {
	Text      string
	BBox      pdf.BoundingBox
	PageIndex int
	Style     TextStyle

	// FontRes is the page resource name of the run's font, kept for
	// redrawing with the original font program. Empty for fallback
	// backends.
	FontRes string

	// Baseline is the Y coordinate text was drawn at, distinct from
	// the bbox bottom.
	Baseline float64
}

func (c *TextContainer) String() string {
	return fmt.Sprintf("%q p%d [%.1f %.1f %.1f %.1f] %s",
		c.Text, c.PageIndex, c.BBox.X0, c.BBox.Y0, c.BBox.X1, c.BBox.Y1, c.Style)
}
