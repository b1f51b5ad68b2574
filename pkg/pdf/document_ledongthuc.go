package pdf

import (
	"fmt"
	"os"

	lpdf "github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ledongthucDocument is the first fallback backend. It recovers text
// and coarse positioning from files pdfcpu rejects; font color and
// descriptor flags are not available, so style degrades to name
// heuristics and black fill.
type ledongthucDocument struct {
	path  string
	file  *os.File
	pages []*simplePage
}

// OpenLedongthuc reads a PDF with the ledongthuc/pdf reader.
func OpenLedongthuc(path string, opts ...Option) (Document, error) {
	o := applyOptions(opts)

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := &ledongthucDocument{path: path, file: f}
	for i := 1; i <= r.NumPage(); i++ {
		page := readLedongthucPage(r, i, o.log)
		doc.pages = append(doc.pages, page)
	}
	return doc, nil
}

func readLedongthucPage(r *lpdf.Reader, pageNr int, log *zap.Logger) (page *simplePage) {
	page = newSimplePage(pageNr - 1)

	// the reader panics on some malformed font programs
	defer func() {
		if rec := recover(); rec != nil {
			page.err = fmt.Errorf("page %d: %w: %v", pageNr-1, ErrMalformedPage, rec)
			log.Warn("skipping page content",
				zap.Int("page", pageNr-1),
				zap.Any("panic", rec))
		}
	}()

	p := r.Page(pageNr)
	if p.V.IsNull() {
		page.err = fmt.Errorf("page %d: %w: missing page object", pageNr-1, ErrMalformedPage)
		return page
	}

	mb := p.V.Key("MediaBox")
	if mb.Len() == 4 {
		page.width = mb.Index(2).Float64() - mb.Index(0).Float64()
		page.height = mb.Index(3).Float64() - mb.Index(1).Float64()
	}

	for _, t := range p.Content().Text {
		page.chars = append(page.chars, splitTextItem(t.S, t.Font, t.FontSize, t.X, t.Y, t.W)...)
	}
	return page
}

func (d *ledongthucDocument) PageCount() int { return len(d.pages) }

func (d *ledongthucDocument) Page(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(d.pages), ErrIndexOutOfRange)
	}
	return d.pages[index], nil
}

func (d *ledongthucDocument) Pages() []Page {
	pages := make([]Page, len(d.pages))
	for i, p := range d.pages {
		pages[i] = p
	}
	return pages
}

func (d *ledongthucDocument) Path() string { return d.path }

func (d *ledongthucDocument) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// simplePage backs the fallback readers. All content is materialized
// at open time.
type simplePage struct {
	index  int
	width  float64
	height float64
	chars  []CharObject
	err    error
}

func newSimplePage(index int) *simplePage {
	// US Letter default when MediaBox is unavailable
	return &simplePage{index: index, width: 612, height: 792}
}

func (p *simplePage) Index() int          { return p.index }
func (p *simplePage) Width() float64      { return p.width }
func (p *simplePage) Height() float64     { return p.height }
func (p *simplePage) Chars() []CharObject { return p.chars }
func (p *simplePage) Err() error          { return p.err }

func (p *simplePage) BBox() BoundingBox {
	return BoundingBox{X0: 0, Y0: 0, X1: p.width, Y1: p.height}
}

// splitTextItem turns one reader text item into per-rune characters,
// sharing the item width evenly across runes.
func splitTextItem(s, font string, fontSize, x, y, w float64) []CharObject {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	baseFont := stripSubsetTag(font)
	bold, italic := InferBoldItalic(baseFont)
	runeWidth := w / float64(len(runes))

	chars := make([]CharObject, 0, len(runes))
	for i, r := range runes {
		x0 := x + float64(i)*runeWidth
		chars = append(chars, CharObject{
			Text:     string(r),
			BaseFont: baseFont,
			FontSize: fontSize,
			Bold:     bold,
			Italic:   italic,
			X0:       x0,
			Y0:       y,
			X1:       x0 + runeWidth,
			Y1:       y + fontSize,
			Width:    runeWidth,
			Color:    Black,
		})
	}
	return chars
}
