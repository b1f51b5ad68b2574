package style

import (
	"math"
	"sort"
	"strings"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
)

// Table is a detected grid of cell containers. Every row holds the
// same number of cells; positions without text carry an empty padding
// cell.
type Table struct {
	BBox      pdf.BoundingBox
	PageIndex int
	Rows      [][]*TextContainer
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the column count, identical for every row.
func (t *Table) NumCols() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Cell returns the container at the given position, or nil when out
// of range.
func (t *Table) Cell(row, col int) *TextContainer {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// ContainsText reports whether any cell contains the given substring.
func (t *Table) ContainsText(s string) bool {
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.Contains(cell.Text, s) {
				return true
			}
		}
	}
	return false
}

// Content returns the cell texts row by row.
func (t *Table) Content() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cell.Text
		}
	}
	return out
}

// tableRow is one baseline of containers during detection.
type tableRow struct {
	baseline float64
	cells    []*TextContainer
}

// detectTables finds aligned grids among one page's containers. The
// detection is deliberately conservative: columns must repeat across
// consecutive rows, and a grid needs at least two rows and two
// columns before it counts as a table.
func (e *Extractor) detectTables(containers []*TextContainer) []*Table {
	rows := e.groupRows(containers)
	if len(rows) < 2 {
		return nil
	}

	var tables []*Table
	i := 0
	for i < len(rows) {
		if len(rows[i].cells) < 2 {
			i++
			continue
		}

		cols := e.rowColumns(rows[i])
		run := []tableRow{rows[i]}
		j := i + 1
		for j < len(rows) {
			gap := rows[j-1].baseline - rows[j].baseline
			if gap > e.rowGapLimit(rows[j-1]) {
				break
			}
			merged, ok := e.mergeColumns(cols, e.rowColumns(rows[j]))
			if !ok {
				break
			}
			cols = merged
			run = append(run, rows[j])
			j++
		}

		if len(run) >= 2 && len(cols) >= 2 {
			tables = append(tables, e.buildTable(run, cols))
			i = j
			continue
		}
		i++
	}
	return tables
}

// groupRows buckets containers by baseline, top of page first.
func (e *Extractor) groupRows(containers []*TextContainer) []tableRow {
	sorted := make([]*TextContainer, len(containers))
	copy(sorted, containers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Baseline-sorted[j].Baseline) > e.lineTolerance {
			return sorted[i].Baseline > sorted[j].Baseline
		}
		return sorted[i].BBox.X0 < sorted[j].BBox.X0
	})

	var rows []tableRow
	for _, c := range sorted {
		if n := len(rows); n > 0 && math.Abs(c.Baseline-rows[n-1].baseline) <= e.lineTolerance {
			rows[n-1].cells = append(rows[n-1].cells, c)
			continue
		}
		rows = append(rows, tableRow{baseline: c.Baseline, cells: []*TextContainer{c}})
	}
	return rows
}

// rowColumns returns the snapped left edges of a row's cells.
func (e *Extractor) rowColumns(row tableRow) []float64 {
	cols := make([]float64, 0, len(row.cells))
	for _, c := range row.cells {
		cols = append(cols, c.BBox.X0)
	}
	sort.Float64s(cols)
	return cols
}

// mergeColumns unifies two column signatures. It succeeds when every
// edge of each signature snaps onto the merged set, meaning the rows
// share a grid.
func (e *Extractor) mergeColumns(a, b []float64) ([]float64, bool) {
	merged := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case math.Abs(a[i]-b[j]) <= e.snapTolerance:
			merged = append(merged, (a[i]+b[j])/2)
			i++
			j++
		case a[i] < b[j]:
			merged = append(merged, a[i])
			i++
		default:
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)

	// a merged grid much wider than either signature is two unrelated
	// layouts, not one table
	if len(merged) > len(a)+1 || len(merged) > len(b)+1 {
		return nil, false
	}
	return merged, true
}

func (e *Extractor) rowGapLimit(prev tableRow) float64 {
	if e.maxRowGap > 0 {
		return e.maxRowGap
	}
	height := prev.cells[0].BBox.Height()
	if height <= 0 {
		height = 12
	}
	return 2.5 * height
}

// buildTable assigns cells to columns and pads the gaps with empty
// containers that inherit the style of their row.
func (e *Extractor) buildTable(run []tableRow, cols []float64) *Table {
	t := &Table{}

	for _, row := range run {
		cells := make([]*TextContainer, len(cols))
		for _, c := range row.cells {
			idx := e.columnIndex(cols, c.BBox.X0)
			if idx >= 0 && cells[idx] == nil {
				cells[idx] = c
			}
		}
		for idx, cell := range cells {
			if cell == nil {
				cells[idx] = paddingCell(row, cols[idx])
			}
		}
		t.Rows = append(t.Rows, cells)
	}

	t.PageIndex = t.Rows[0][0].PageIndex
	t.BBox = t.Rows[0][0].BBox
	for _, row := range t.Rows {
		for _, cell := range row {
			t.BBox = t.BBox.Union(cell.BBox)
		}
	}
	return t
}

func (e *Extractor) columnIndex(cols []float64, x float64) int {
	best := -1
	bestDist := e.snapTolerance + 1
	for i, col := range cols {
		if d := math.Abs(col - x); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// paddingCell fills an empty grid slot, borrowing style from the
// row's first real cell.
func paddingCell(row tableRow, x float64) *TextContainer {
	ref := row.cells[0]
	return &TextContainer{
		Text: "",
		BBox: pdf.BoundingBox{
			X0: x, Y0: ref.BBox.Y0,
			X1: x, Y1: ref.BBox.Y1,
		},
		PageIndex: ref.PageIndex,
		Style:     ref.Style,
		FontRes:   ref.FontRes,
		Baseline:  row.baseline,
	}
}
