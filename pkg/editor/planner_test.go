package editor

import (
	"strings"
	"testing"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
	"github.com/docpatch/pdfstyle-golang/pkg/style"
)

func cell(text string, page int, x, y float64, st style.TextStyle) *style.TextContainer {
	width := float64(len(text)) * 0.5 * st.FontSize
	return &style.TextContainer{
		Text:      text,
		PageIndex: page,
		BBox:      pdf.BoundingBox{X0: x, Y0: y, X1: x + width, Y1: y + st.FontSize},
		Style:     st,
		Baseline:  y,
	}
}

var (
	body = style.TextStyle{FontName: "Helvetica", FontSize: 11, Color: pdf.Black}
	bold = style.TextStyle{FontName: "Helvetica-Bold", FontSize: 11, Bold: true, Color: pdf.Color{R: 180}}
)

func newTestPlanner() *Planner {
	return NewPlanner(&fakeDoc{path: "in.pdf"}, nil)
}

func TestPlanTextDrawsReplacement(t *testing.T) {
	c := cell("Old Text", 2, 72, 700, body)
	edit := newTestPlanner().PlanText(c, "New Text", true)

	if edit.PageIndex != 2 {
		t.Errorf("page = %d, want 2", edit.PageIndex)
	}
	if len(edit.Clear) != 1 {
		t.Fatalf("clear regions = %d, want 1", len(edit.Clear))
	}
	clear := edit.Clear[0]
	if clear.X0 > c.BBox.X0 || clear.X1 < c.BBox.X1 || clear.Y0 > c.BBox.Y0 || clear.Y1 < c.BBox.Y1 {
		t.Errorf("clear region %v does not cover container %v", clear, c.BBox)
	}

	ops := string(edit.Ops)
	for _, want := range []string{"BT", "ET", "(New Text) Tj", "72.00 700.00 Td", "/PSHv 11.00 Tf"} {
		if !strings.Contains(ops, want) {
			t.Errorf("ops missing %q:\n%s", want, ops)
		}
	}
	if len(edit.Fonts) != 1 || edit.Fonts[0].BaseFont != "Helvetica" {
		t.Errorf("fallback fonts = %v, want Helvetica", edit.Fonts)
	}
}

func TestPlanTextEmptyClearsOnly(t *testing.T) {
	edit := newTestPlanner().PlanText(cell("gone", 0, 72, 700, body), "", true)
	if len(edit.Ops) != 0 {
		t.Errorf("ops = %q, want none", edit.Ops)
	}
	if len(edit.Clear) != 1 {
		t.Errorf("clear regions = %d, want 1", len(edit.Clear))
	}
}

func TestPlanTextPreservesStyle(t *testing.T) {
	edit := newTestPlanner().PlanText(cell("Header", 0, 72, 700, bold), "Footer", true)

	ops := string(edit.Ops)
	if !strings.Contains(ops, "/PSHvB 11.00 Tf") {
		t.Errorf("bold style not preserved:\n%s", ops)
	}
	if !strings.Contains(ops, "0.706 0.000 0.000 rg") {
		t.Errorf("color not preserved:\n%s", ops)
	}
	if len(edit.Fonts) != 1 || edit.Fonts[0].BaseFont != "Helvetica-Bold" {
		t.Errorf("fallback fonts = %v, want Helvetica-Bold", edit.Fonts)
	}
}

func TestPlanTextPlainStyle(t *testing.T) {
	edit := newTestPlanner().PlanText(cell("Header", 0, 72, 700, bold), "Footer", false)

	ops := string(edit.Ops)
	if !strings.Contains(ops, "/PSHv 11.00 Tf") {
		t.Errorf("plain style not applied:\n%s", ops)
	}
	if !strings.Contains(ops, "0.000 0.000 0.000 rg") {
		t.Errorf("plain color not black:\n%s", ops)
	}
}

func testTable() *style.Table {
	rows := [][]*style.TextContainer{
		{cell("Region", 0, 72, 600, bold), cell("Revenue", 0, 200, 600, bold)},
		{cell("North", 0, 72, 580, body), cell("1200", 0, 200, 580, body)},
	}
	t := &style.Table{PageIndex: 0, Rows: rows}
	for _, row := range rows {
		for _, c := range row {
			t.BBox = t.BBox.Union(c.BBox)
		}
	}
	return t
}

func TestPlanTableSameShape(t *testing.T) {
	edits := newTestPlanner().PlanTable(testTable(), [][]string{
		{"Area", "Income"},
		{"South", "900"},
	}, true)

	if len(edits) != 4 {
		t.Fatalf("edits = %d, want 4", len(edits))
	}
	all := opsOf(edits)
	for _, want := range []string{"(Area)", "(Income)", "(South)", "(900)"} {
		if !strings.Contains(all, want) {
			t.Errorf("ops missing %q", want)
		}
	}
}

func TestPlanTableShrinkClearsLeftoverCells(t *testing.T) {
	edits := newTestPlanner().PlanTable(testTable(), [][]string{{"Only"}}, true)

	if len(edits) != 4 {
		t.Fatalf("edits = %d, want 4 (every cell touched)", len(edits))
	}
	withOps := 0
	for _, e := range edits {
		if len(e.Ops) > 0 {
			withOps++
		}
		if len(e.Clear) == 0 {
			t.Error("edit without a clear region")
		}
	}
	if withOps != 1 {
		t.Errorf("edits drawing text = %d, want 1", withOps)
	}
}

func TestPlanTableGrowAddsRows(t *testing.T) {
	edits := newTestPlanner().PlanTable(testTable(), [][]string{
		{"Region", "Revenue"},
		{"North", "1200"},
		{"South", "900"},
	}, true)

	if len(edits) != 6 {
		t.Fatalf("edits = %d, want 6", len(edits))
	}

	all := opsOf(edits)
	if !strings.Contains(all, "(South)") {
		t.Errorf("grown row not drawn:\n%s", all)
	}
	// new row sits one row pitch below the last detected row
	if !strings.Contains(all, "72.00 560.00 Td") {
		t.Errorf("grown row baseline wrong:\n%s", all)
	}
}

func TestPlanTableGrowAddsColumns(t *testing.T) {
	edits := newTestPlanner().PlanTable(testTable(), [][]string{
		{"Region", "Revenue", "Growth"},
		{"North", "1200", "+4%"},
	}, true)

	if len(edits) != 6 {
		t.Fatalf("edits = %d, want 6", len(edits))
	}
	all := opsOf(edits)
	// new column sits one column pitch right of the last one
	if !strings.Contains(all, "328.00 600.00 Td") {
		t.Errorf("grown column position wrong:\n%s", all)
	}
}

func TestPlanTableEmptyDataClearsAll(t *testing.T) {
	edits := newTestPlanner().PlanTable(testTable(), nil, true)

	if len(edits) != 4 {
		t.Fatalf("edits = %d, want 4", len(edits))
	}
	for _, e := range edits {
		if len(e.Ops) != 0 {
			t.Errorf("clear-only edit has ops: %q", e.Ops)
		}
	}
}

func opsOf(edits []pdf.ContentEdit) string {
	var sb strings.Builder
	for _, e := range edits {
		sb.Write(e.Ops)
	}
	return sb.String()
}

func TestEscapeTextString(t *testing.T) {
	cases := map[string]string{
		"plain":      "plain",
		"a(b)c":      `a\(b\)c`,
		`back\slash`: `back\\slash`,
		"line\nfeed": `line\nfeed`,
		"caf\u00e9":  `caf\351`,
	}
	for in, want := range cases {
		if got := escapeTextString(in); got != want {
			t.Errorf("escapeTextString(%q) = %q, want %q", in, got, want)
		}
	}
}
