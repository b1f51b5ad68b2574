package pdf

import (
	"math"
	"strings"
	"testing"
)

func parseContent(t *testing.T, content string, fonts map[string]*FontInfo) []CharObject {
	t.Helper()
	return NewContentParser(fonts).Parse([]byte(content))
}

func textOf(chars []CharObject) string {
	var sb strings.Builder
	for _, c := range chars {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func helveticaFonts() map[string]*FontInfo {
	return map[string]*FontInfo{
		"F1": {Res: "F1", BaseFont: "Helvetica"},
		"F2": {Res: "F2", BaseFont: "Helvetica-Bold", Bold: true, FlagsKnown: true},
	}
}

func TestParseSimpleText(t *testing.T) {
	chars := parseContent(t, "BT /F1 12 Tf 72 700 Td (Hello) Tj ET", helveticaFonts())

	if got := textOf(chars); got != "Hello" {
		t.Fatalf("text = %q, want Hello", got)
	}
	first := chars[0]
	if !almostEqual(first.X0, 72) || !almostEqual(first.Y0, 700) {
		t.Errorf("first glyph at (%.2f, %.2f), want (72, 700)", first.X0, first.Y0)
	}
	if !almostEqual(first.FontSize, 12) {
		t.Errorf("font size = %.2f, want 12", first.FontSize)
	}
	if first.BaseFont != "Helvetica" || first.FontRes != "F1" {
		t.Errorf("font = %q res %q, want Helvetica/F1", first.BaseFont, first.FontRes)
	}
	if first.Color != Black {
		t.Errorf("color = %v, want black", first.Color)
	}

	for i := 1; i < len(chars); i++ {
		if chars[i].X0 <= chars[i-1].X0 {
			t.Errorf("glyph %d did not advance: %.2f <= %.2f", i, chars[i].X0, chars[i-1].X0)
		}
		if !almostEqual(chars[i].Y0, 700) {
			t.Errorf("glyph %d moved off the baseline: %.2f", i, chars[i].Y0)
		}
	}
}

func TestParseFillColor(t *testing.T) {
	chars := parseContent(t, "BT /F1 10 Tf 1 0 0 rg 10 10 Td (X) Tj ET", helveticaFonts())
	if len(chars) != 1 {
		t.Fatalf("got %d chars, want 1", len(chars))
	}
	if chars[0].Color != (Color{R: 255}) {
		t.Errorf("color = %v, want red", chars[0].Color)
	}
}

func TestParseGrayAndCMYK(t *testing.T) {
	chars := parseContent(t, "BT /F1 10 Tf 0.5 g 10 10 Td (A) Tj 0 0 0 1 k (B) Tj ET", helveticaFonts())
	if len(chars) != 2 {
		t.Fatalf("got %d chars, want 2", len(chars))
	}
	if chars[0].Color.R != chars[0].Color.G || chars[0].Color.G != chars[0].Color.B {
		t.Errorf("gray fill is not gray: %v", chars[0].Color)
	}
	if chars[1].Color != Black {
		t.Errorf("full-K CMYK = %v, want black", chars[1].Color)
	}
}

func TestParseBoldFontAttributes(t *testing.T) {
	chars := parseContent(t, "BT /F2 14 Tf 0 0 Td (B) Tj ET", helveticaFonts())
	if len(chars) != 1 || !chars[0].Bold {
		t.Fatalf("bold flag not carried: %+v", chars)
	}
}

func TestParseTJAdjustment(t *testing.T) {
	chars := parseContent(t, "BT /F1 12 Tf 72 700 Td [(A) -500 (B)] TJ ET", helveticaFonts())
	if got := textOf(chars); got != "AB" {
		t.Fatalf("text = %q, want AB", got)
	}

	// -500 thousandths widens the gap by half the font size
	gap := chars[1].X0 - chars[0].X1
	if !almostEqual(gap, 6) {
		t.Errorf("kerning gap = %.2f, want 6", gap)
	}
}

func TestParseMultipleLines(t *testing.T) {
	content := "BT /F1 12 Tf 14 TL 72 700 Td (one) Tj T* (two) Tj ET"
	chars := parseContent(t, content, helveticaFonts())

	if got := textOf(chars); got != "onetwo" {
		t.Fatalf("text = %q, want onetwo", got)
	}
	if !almostEqual(chars[3].Y0, 686) {
		t.Errorf("second line baseline = %.2f, want 686", chars[3].Y0)
	}
	if !almostEqual(chars[3].X0, 72) {
		t.Errorf("second line start = %.2f, want 72", chars[3].X0)
	}
}

func TestParseEscapesAndHex(t *testing.T) {
	chars := parseContent(t, `BT /F1 12 Tf 0 0 Td (a\(b\)c) Tj <48> Tj ET`, helveticaFonts())
	if got := textOf(chars); got != "a(b)cH" {
		t.Errorf("text = %q, want a(b)cH", got)
	}
}

func TestParseOctalEscape(t *testing.T) {
	chars := parseContent(t, `BT /F1 12 Tf 0 0 Td (\101) Tj ET`, helveticaFonts())
	if got := textOf(chars); got != "A" {
		t.Errorf("text = %q, want A", got)
	}
}

func TestParseCTMTranslation(t *testing.T) {
	chars := parseContent(t, "q 1 0 0 1 100 50 cm BT /F1 12 Tf 10 10 Td (X) Tj ET Q", helveticaFonts())
	if len(chars) != 1 {
		t.Fatalf("got %d chars, want 1", len(chars))
	}
	if !almostEqual(chars[0].X0, 110) || !almostEqual(chars[0].Y0, 60) {
		t.Errorf("glyph at (%.2f, %.2f), want (110, 60)", chars[0].X0, chars[0].Y0)
	}
}

func TestParseTmScaling(t *testing.T) {
	chars := parseContent(t, "BT /F1 1 Tf 12 0 0 12 72 700 Tm (X) Tj ET", helveticaFonts())
	if len(chars) != 1 {
		t.Fatalf("got %d chars, want 1", len(chars))
	}
	if !almostEqual(chars[0].FontSize, 12) {
		t.Errorf("effective size = %.2f, want 12", chars[0].FontSize)
	}
	if !almostEqual(chars[0].X0, 72) || !almostEqual(chars[0].Y0, 700) {
		t.Errorf("glyph at (%.2f, %.2f), want (72, 700)", chars[0].X0, chars[0].Y0)
	}
}

func TestParseWidthsArray(t *testing.T) {
	fonts := map[string]*FontInfo{
		"F1": {
			Res: "F1", BaseFont: "Courier",
			FirstChar: 65,
			Widths:    []float64{600, 600},
		},
	}
	chars := parseContent(t, "BT /F1 10 Tf 0 0 Td (AB) Tj ET", fonts)
	if len(chars) != 2 {
		t.Fatalf("got %d chars, want 2", len(chars))
	}
	if !almostEqual(chars[0].Width, 6) {
		t.Errorf("glyph width = %.2f, want 6", chars[0].Width)
	}
	if !almostEqual(chars[1].X0, 6) {
		t.Errorf("second glyph X0 = %.2f, want 6", chars[1].X0)
	}
}

func TestParseToUnicodeDecoding(t *testing.T) {
	cmap := ParseToUnicodeCMap([]byte("1 beginbfchar\n<0041> <0042>\nendbfchar"))
	fonts := map[string]*FontInfo{
		"F1": {Res: "F1", BaseFont: "Custom", ToUnicode: cmap},
	}
	chars := parseContent(t, "BT /F1 12 Tf 0 0 Td (A) Tj ET", fonts)
	if got := textOf(chars); got != "B" {
		t.Errorf("text = %q, want B (remapped)", got)
	}
}

func TestParseUnknownFontResource(t *testing.T) {
	chars := parseContent(t, "BT /Missing 12 Tf 0 0 Td (ok) Tj ET", nil)
	if got := textOf(chars); got != "ok" {
		t.Errorf("text = %q, want ok", got)
	}
	if chars[0].BaseFont != "" {
		t.Errorf("base font = %q, want empty", chars[0].BaseFont)
	}
}

func TestWhiteRectHidesEarlierText(t *testing.T) {
	content := "BT /F1 12 Tf 72 700 Td (Old) Tj ET " +
		"q 1 1 1 rg 71 699 40 14 re f Q " +
		"BT /F1 12 Tf 0 0 0 rg 72 700 Td (New) Tj ET"
	chars := parseContent(t, content, helveticaFonts())

	if got := textOf(chars); got != "New" {
		t.Fatalf("text = %q, want New (covered glyphs dropped)", got)
	}
}

func TestWhiteRectBeforeTextKeepsIt(t *testing.T) {
	content := "q 1 1 1 rg 71 699 40 14 re f Q " +
		"BT /F1 12 Tf 72 700 Td (Kept) Tj ET"
	chars := parseContent(t, content, helveticaFonts())

	if got := textOf(chars); got != "Kept" {
		t.Errorf("text = %q, want Kept (fill precedes the glyphs)", got)
	}
}

func TestColoredRectDoesNotHideText(t *testing.T) {
	content := "BT /F1 12 Tf 72 700 Td (Shaded) Tj ET " +
		"q 1 1 0 rg 71 699 60 14 re f Q"
	chars := parseContent(t, content, helveticaFonts())

	if got := textOf(chars); got != "Shaded" {
		t.Errorf("text = %q, want Shaded (non-white fill)", got)
	}
}

func TestWordSpacingAppliesToSpaces(t *testing.T) {
	with := parseContent(t, "BT /F1 12 Tf 5 Tw 0 0 Td (a b) Tj ET", helveticaFonts())
	without := parseContent(t, "BT /F1 12 Tf 0 0 Td (a b) Tj ET", helveticaFonts())

	if len(with) != 3 || len(without) != 3 {
		t.Fatalf("unexpected char counts: %d, %d", len(with), len(without))
	}
	delta := (with[2].X0 - without[2].X0)
	if !almostEqual(delta, 5) {
		t.Errorf("word spacing shifted b by %.2f, want 5", delta)
	}
}
