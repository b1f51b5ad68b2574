package pdf

import (
	"fmt"

	dpdf "github.com/dslipak/pdf"
	"go.uber.org/zap"
)

// dslipakDocument is the last-resort backend. Same degradations as
// the ledongthuc reader, but tolerant of a different set of malformed
// cross-reference tables.
type dslipakDocument struct {
	path  string
	pages []*simplePage
}

// OpenDslipak reads a PDF with the dslipak/pdf reader.
func OpenDslipak(path string, opts ...Option) (Document, error) {
	o := applyOptions(opts)

	r, err := dpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := &dslipakDocument{path: path}
	for i := 1; i <= r.NumPage(); i++ {
		doc.pages = append(doc.pages, readDslipakPage(r, i, o.log))
	}
	return doc, nil
}

func readDslipakPage(r *dpdf.Reader, pageNr int, log *zap.Logger) (page *simplePage) {
	page = newSimplePage(pageNr - 1)

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

func (d *dslipakDocument) PageCount() int { return len(d.pages) }

func (d *dslipakDocument) Page(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(d.pages), ErrIndexOutOfRange)
	}
	return d.pages[index], nil
}

func (d *dslipakDocument) Pages() []Page {
	pages := make([]Page, len(d.pages))
	for i, p := range d.pages {
		pages[i] = p
	}
	return pages
}

func (d *dslipakDocument) Path() string { return d.path }

func (d *dslipakDocument) Close() error { return nil }
