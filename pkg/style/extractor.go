package style

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
)

const (
	defaultLineTolerance = 2.0
	defaultSnapTolerance = 3.0

	// gap handling, as multiples of the current font size
	spaceGapRatio        = 0.25
	defaultSplitGapRatio = 1.2
)

// Extractor builds styled text containers and tables from a document.
type Extractor struct {
	lineTolerance float64
	splitGapRatio float64
	snapTolerance float64
	maxRowGap     float64
	log           *zap.Logger
}

// ExtractorOption adjusts extraction behavior.
type ExtractorOption func(*Extractor)

// WithLineTolerance sets how far apart two baselines may be while
// still counting as one line, in points.
func WithLineTolerance(tol float64) ExtractorOption {
	return func(e *Extractor) { e.lineTolerance = tol }
}

// WithGapTolerance sets the horizontal gap, as a multiple of the font
// size, beyond which a line splits into separate containers.
func WithGapTolerance(ratio float64) ExtractorOption {
	return func(e *Extractor) { e.splitGapRatio = ratio }
}

// WithSnapTolerance sets how far cell edges may drift while still
// snapping to the same table column, in points.
func WithSnapTolerance(tol float64) ExtractorOption {
	return func(e *Extractor) { e.snapTolerance = tol }
}

// WithMaxRowGap caps the vertical distance between consecutive table
// rows, in points. Zero keeps the default of twice the row height.
func WithMaxRowGap(gap float64) ExtractorOption {
	return func(e *Extractor) { e.maxRowGap = gap }
}

// WithExtractorLogger routes extraction warnings to the given logger.
func WithExtractorLogger(log *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewExtractor creates an extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		lineTolerance: defaultLineTolerance,
		splitGapRatio: defaultSplitGapRatio,
		snapTolerance: defaultSnapTolerance,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDocument walks every page and returns containers in reading
// order plus the tables detected among them. Pages that fail to
// decode are logged and skipped.
func (e *Extractor) ExtractDocument(doc pdf.Document) ([]*TextContainer, []*Table) {
	var containers []*TextContainer
	var tables []*Table

	for _, page := range doc.Pages() {
		if err := page.Err(); err != nil {
			e.log.Warn("extraction skipped page",
				zap.Int("page", page.Index()),
				zap.Error(err))
			continue
		}

		pageContainers := e.extractPage(page)
		containers = append(containers, pageContainers...)
		tables = append(tables, e.detectTables(pageContainers)...)
	}

	return containers, tables
}

// extractPage groups a page's characters into lines, then merges each
// line into styled runs.
func (e *Extractor) extractPage(page pdf.Page) []*TextContainer {
	chars := page.Chars()
	if len(chars) == 0 {
		return nil
	}

	lines := e.groupLines(chars)

	var containers []*TextContainer
	for _, line := range lines {
		containers = append(containers, e.mergeLine(line, page.Index())...)
	}
	return containers
}

// groupLines buckets characters by baseline, top of page first.
func (e *Extractor) groupLines(chars []pdf.CharObject) [][]pdf.CharObject {
	sorted := make([]pdf.CharObject, len(chars))
	copy(sorted, chars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y0-sorted[j].Y0) > e.lineTolerance {
			return sorted[i].Y0 > sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines [][]pdf.CharObject
	var current []pdf.CharObject
	var lineY float64

	for _, c := range sorted {
		if len(current) == 0 || math.Abs(c.Y0-lineY) <= e.lineTolerance {
			if len(current) == 0 {
				lineY = c.Y0
			}
			current = append(current, c)
			continue
		}
		lines = append(lines, current)
		current = []pdf.CharObject{c}
		lineY = c.Y0
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// mergeLine splits one line into containers on style changes and wide
// gaps, inserting a space for moderate gaps.
func (e *Extractor) mergeLine(line []pdf.CharObject, pageIndex int) []*TextContainer {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })

	var out []*TextContainer
	var run []pdf.CharObject
	var text strings.Builder

	flush := func() {
		if len(run) == 0 {
			return
		}
		bbox := run[0].GetBBox()
		for _, c := range run[1:] {
			bbox = bbox.Union(c.GetBBox())
		}
		out = append(out, &TextContainer{
			Text:      text.String(),
			BBox:      bbox,
			PageIndex: pageIndex,
			Style:     styleFromChar(run[0]),
			FontRes:   run[0].FontRes,
			Baseline:  run[0].Y0,
		})
		run = run[:0]
		text.Reset()
	}

	for _, c := range line {
		if strings.TrimSpace(c.Text) == "" && len(run) == 0 {
			continue
		}

		if len(run) > 0 {
			prev := run[len(run)-1]
			gap := c.X0 - prev.X1
			size := math.Max(prev.FontSize, 1)

			if !styleFromChar(prev).Equal(styleFromChar(c)) || gap > e.splitGapRatio*size {
				flush()
			} else if gap > spaceGapRatio*size && !strings.HasSuffix(text.String(), " ") {
				text.WriteString(" ")
			}
		}

		run = append(run, c)
		text.WriteString(c.Text)
	}
	flush()

	// trailing whitespace never counts toward a container
	for _, c := range out {
		c.Text = strings.TrimRight(c.Text, " ")
	}
	return out
}
