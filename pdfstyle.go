// Package pdfstyle extracts styled text from PDF documents and
// rewrites it in place, preserving fonts, sizes and colors.
//
// A Document bundles the three layers: extraction of styled text
// containers and tables, queries over them, and buffered in-place
// replacements written out with Save.
package pdfstyle

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/docpatch/pdfstyle-golang/pkg/editor"
	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
	"github.com/docpatch/pdfstyle-golang/pkg/scraper"
	"github.com/docpatch/pdfstyle-golang/pkg/style"
)

// Re-exported core types.
type (
	BoundingBox   = pdf.BoundingBox
	Color         = pdf.Color
	TextStyle     = style.TextStyle
	TextContainer = style.TextContainer
	Table         = style.Table
	StyleGroup    = editor.StyleGroup
)

// Re-exported sentinel errors.
var (
	ErrNotFound        = pdf.ErrNotFound
	ErrInvalidPattern  = pdf.ErrInvalidPattern
	ErrIndexOutOfRange = pdf.ErrIndexOutOfRange
	ErrMalformedPage   = pdf.ErrMalformedPage
)

// Re-exported query and replace options.
type (
	TextMatchOption = scraper.TextMatchOption
	PositionOption  = scraper.PositionOption
	StyleFilter     = scraper.StyleFilter
	ReplaceOption   = editor.ReplaceOption
)

var (
	ExactMatch = scraper.ExactMatch
	IgnoreCase = scraper.IgnoreCase
	OnPage     = scraper.OnPage

	FontNamed = scraper.FontNamed
	Sized     = scraper.Sized
	Colored   = scraper.Colored
	Bold      = scraper.Bold
	Italic    = scraper.Italic

	PlainStyle   = editor.PlainStyle
	MatchAnyCase = editor.MatchAnyCase
)

// Black is opaque black, the default text color.
var Black = pdf.Black

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	password  string
	log       *zap.Logger
	extractor []style.ExtractorOption
}

// WithPassword supplies a password for encrypted documents.
func WithPassword(pw string) Option {
	return func(c *openConfig) { c.password = pw }
}

// WithLogger routes extraction and edit diagnostics to the given
// logger. The default discards them.
func WithLogger(log *zap.Logger) Option {
	return func(c *openConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithLineTolerance sets the baseline distance that still counts as
// one line, in points.
func WithLineTolerance(tol float64) Option {
	return func(c *openConfig) {
		c.extractor = append(c.extractor, style.WithLineTolerance(tol))
	}
}

// WithGapTolerance sets the gap, as a multiple of the font size,
// beyond which a line splits into separate containers.
func WithGapTolerance(ratio float64) Option {
	return func(c *openConfig) {
		c.extractor = append(c.extractor, style.WithGapTolerance(ratio))
	}
}

// WithSnapTolerance sets the horizontal drift tolerated when snapping
// table cell edges to a column, in points.
func WithSnapTolerance(tol float64) Option {
	return func(c *openConfig) {
		c.extractor = append(c.extractor, style.WithSnapTolerance(tol))
	}
}

// Document is an open PDF with its extraction results and a buffered
// editor.
type Document struct {
	backend pdf.Document
	scraper *scraper.Scraper
	editor  *editor.Editor
	log     *zap.Logger
}

// Open reads a PDF and extracts its styled text. The primary reader
// keeps the file editable; if it cannot parse the file, two simpler
// readers are tried in turn, each recovering text and positions at
// the cost of color and editing support.
func Open(path string, opts ...Option) (*Document, error) {
	cfg := openConfig{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	backendOpts := []pdf.Option{pdf.WithLogger(cfg.log)}
	if cfg.password != "" {
		backendOpts = append(backendOpts, pdf.WithPassword(cfg.password))
	}

	var errs error
	backend, err := pdf.Open(path, backendOpts...)
	if err != nil {
		errs = multierr.Append(errs, err)
		cfg.log.Warn("primary reader failed, falling back", zap.Error(err))
		backend, err = pdf.OpenLedongthuc(path, backendOpts...)
	}
	if err != nil {
		errs = multierr.Append(errs, err)
		backend, err = pdf.OpenDslipak(path, backendOpts...)
	}
	if err != nil {
		errs = multierr.Append(errs, err)
		return nil, fmt.Errorf("opening %s: %w", path, errs)
	}

	extractorOpts := append([]style.ExtractorOption{style.WithExtractorLogger(cfg.log)}, cfg.extractor...)
	containers, tables := style.NewExtractor(extractorOpts...).ExtractDocument(backend)

	scr := scraper.New(containers, tables)
	return &Document{
		backend: backend,
		scraper: scr,
		editor:  editor.New(backend, scr, editor.WithLogger(cfg.log)),
		log:     cfg.log,
	}, nil
}

// Path returns the path the document was opened from.
func (d *Document) Path() string { return d.backend.Path() }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.backend.PageCount() }

// PageDimensions returns the width and height of a page in points.
func (d *Document) PageDimensions(pageIndex int) (width, height float64, err error) {
	page, err := d.backend.Page(pageIndex)
	if err != nil {
		return 0, 0, err
	}
	return page.Width(), page.Height(), nil
}

// Containers returns every extracted container in reading order.
func (d *Document) Containers() []*TextContainer { return d.scraper.Containers() }

// FindByText returns the containers whose text matches the query.
func (d *Document) FindByText(query string, opts ...TextMatchOption) []*TextContainer {
	return d.scraper.FindByText(query, opts...)
}

// FindByRegex returns the containers matching a regular expression.
func (d *Document) FindByRegex(pattern string) ([]*TextContainer, error) {
	return d.scraper.FindByRegex(pattern)
}

// FindByPosition returns the containers intersecting a region
// expanded by the tolerance, on every page unless narrowed with
// OnPage.
func (d *Document) FindByPosition(region BoundingBox, tolerance float64, opts ...PositionOption) []*TextContainer {
	return d.scraper.FindByPosition(region, tolerance, opts...)
}

// FindByStyle returns the containers whose style satisfies every
// filter.
func (d *Document) FindByStyle(filters ...StyleFilter) []*TextContainer {
	return d.scraper.FindByStyle(filters...)
}

// Tables returns every detected table.
func (d *Document) Tables() []*Table { return d.scraper.Tables() }

// TablesOnPage returns the tables detected on one page.
func (d *Document) TablesOnPage(pageIndex int) []*Table {
	return d.scraper.TablesOnPage(pageIndex)
}

// FindTableByContent returns the first table with a cell containing
// the given substring.
func (d *Document) FindTableByContent(text string) (*Table, bool) {
	return d.scraper.FindTableByContent(text)
}

// StyleInfo returns the style of the first container containing the
// given text.
func (d *Document) StyleInfo(text string) (TextStyle, bool) {
	return d.editor.StyleInfo(text)
}

// AllTextStyles partitions the document's text by style.
func (d *Document) AllTextStyles() map[string]StyleGroup {
	return d.editor.AllTextStyles()
}

// ReplaceText replaces every occurrence of old in the document and
// returns the number of containers updated.
func (d *Document) ReplaceText(old, new string, opts ...ReplaceOption) int {
	return d.editor.ReplaceText(old, new, opts...)
}

// ReplaceTextInRegion is ReplaceText restricted to one page region.
func (d *Document) ReplaceTextInRegion(pageIndex int, region BoundingBox, old, new string, opts ...ReplaceOption) int {
	return d.editor.ReplaceTextInRegion(pageIndex, region, old, new, opts...)
}

// ReplaceTable swaps the content of the table at the given index.
func (d *Document) ReplaceTable(index int, data [][]string, opts ...ReplaceOption) error {
	return d.editor.ReplaceTable(index, data, opts...)
}

// ReplaceTableByContent replaces the first table containing the match
// text, reporting whether one was found.
func (d *Document) ReplaceTableByContent(match string, data [][]string, opts ...ReplaceOption) bool {
	return d.editor.ReplaceTableByContent(match, data, opts...)
}

// PendingEdits returns the number of buffered edits.
func (d *Document) PendingEdits() int { return d.editor.PendingEdits() }

// Save writes the document with all buffered edits applied to path.
// With no edits the source bytes are copied unchanged.
func (d *Document) Save(path string) error { return d.editor.Save(path) }

// Close releases the document.
func (d *Document) Close() error { return d.editor.Close() }
