package style

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
)

// fakePage feeds synthetic characters into the extractor.
type fakePage struct {
	index  int
	width  float64
	height float64
	chars  []pdf.CharObject
	err    error
}

func (p *fakePage) Index() int              { return p.index }
func (p *fakePage) Width() float64          { return p.width }
func (p *fakePage) Height() float64         { return p.height }
func (p *fakePage) Chars() []pdf.CharObject { return p.chars }
func (p *fakePage) Err() error              { return p.err }

func (p *fakePage) BBox() pdf.BoundingBox {
	return pdf.BoundingBox{X1: p.width, Y1: p.height}
}

type fakeDoc struct {
	path  string
	pages []pdf.Page
}

func (d *fakeDoc) PageCount() int    { return len(d.pages) }
func (d *fakeDoc) Pages() []pdf.Page { return d.pages }
func (d *fakeDoc) Path() string      { return d.path }
func (d *fakeDoc) Close() error      { return nil }

func (d *fakeDoc) Page(index int) (pdf.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, pdf.ErrIndexOutOfRange
	}
	return d.pages[index], nil
}

// lineChars lays out text as fixed-advance characters at the given
// origin and style.
func lineChars(text string, x, y, size float64, st TextStyle) []pdf.CharObject {
	advance := 0.5 * size
	chars := make([]pdf.CharObject, 0, len(text))
	for i, r := range []rune(text) {
		x0 := x + float64(i)*advance
		chars = append(chars, pdf.CharObject{
			Text:     string(r),
			FontRes:  "F1",
			BaseFont: st.FontName,
			FontSize: st.FontSize,
			Bold:     st.Bold,
			Italic:   st.Italic,
			X0:       x0,
			Y0:       y,
			X1:       x0 + advance,
			Y1:       y + size,
			Width:    advance,
			Color:    st.Color,
		})
	}
	return chars
}

var (
	body    = TextStyle{FontName: "Helvetica", FontSize: 11, Color: pdf.Black}
	heading = TextStyle{FontName: "Helvetica-Bold", FontSize: 18, Bold: true, Color: pdf.Color{B: 128}}
)

func singlePageDoc(chars ...[]pdf.CharObject) *fakeDoc {
	var all []pdf.CharObject
	for _, c := range chars {
		all = append(all, c...)
	}
	return &fakeDoc{
		path:  "test.pdf",
		pages: []pdf.Page{&fakePage{width: 595, height: 842, chars: all}},
	}
}

func TestExtractSingleLine(t *testing.T) {
	doc := singlePageDoc(lineChars("Hello World", 72, 700, 11, body))

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 1 {
		t.Fatalf("got %d containers, want 1: %v", len(containers), containers)
	}

	c := containers[0]
	if c.Text != "Hello World" {
		t.Errorf("text = %q, want Hello World", c.Text)
	}
	if c.PageIndex != 0 {
		t.Errorf("page = %d, want 0", c.PageIndex)
	}
	if c.Baseline != 700 {
		t.Errorf("baseline = %.1f, want 700", c.Baseline)
	}
	if !c.Style.Equal(body) {
		t.Errorf("style = %v, want %v", c.Style, body)
	}
	if c.BBox.X0 != 72 || c.BBox.Y0 != 700 {
		t.Errorf("bbox origin = (%.1f, %.1f), want (72, 700)", c.BBox.X0, c.BBox.Y0)
	}
}

func TestExtractSplitsOnStyleChange(t *testing.T) {
	doc := singlePageDoc(
		lineChars("Title: ", 72, 700, 11, body),
		lineChars("Report", 110.5, 700, 11, TextStyle{FontName: "Helvetica-Bold", FontSize: 11, Bold: true, Color: pdf.Black}),
	)

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 2 {
		t.Fatalf("got %d containers, want 2", len(containers))
	}
	if containers[0].Text != "Title:" {
		t.Errorf("first = %q, want Title:", containers[0].Text)
	}
	if containers[1].Text != "Report" || !containers[1].Style.Bold {
		t.Errorf("second = %q bold=%t, want Report bold", containers[1].Text, containers[1].Style.Bold)
	}
}

func TestExtractSplitsOnWideGap(t *testing.T) {
	doc := singlePageDoc(
		lineChars("left", 72, 700, 11, body),
		lineChars("right", 300, 700, 11, body),
	)

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 2 {
		t.Fatalf("got %d containers, want 2: %v", len(containers), containers)
	}
}

func TestExtractInsertsSpaceForModerateGap(t *testing.T) {
	// 4pt gap at 11pt: between the space threshold and the split
	// threshold
	doc := singlePageDoc(
		lineChars("ab", 72, 700, 11, body),
		lineChars("cd", 87, 700, 11, body),
	)

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 1 {
		t.Fatalf("got %d containers, want 1: %v", len(containers), containers)
	}
	if containers[0].Text != "ab cd" {
		t.Errorf("text = %q, want %q", containers[0].Text, "ab cd")
	}
}

func TestExtractReadingOrder(t *testing.T) {
	doc := singlePageDoc(
		lineChars("bottom", 72, 100, 11, body),
		lineChars("top", 72, 700, 18, heading),
		lineChars("middle", 72, 400, 11, body),
	)

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 3 {
		t.Fatalf("got %d containers, want 3", len(containers))
	}
	want := []string{"top", "middle", "bottom"}
	for i, c := range containers {
		if c.Text != want[i] {
			t.Errorf("containers[%d] = %q, want %q", i, c.Text, want[i])
		}
	}
}

func TestExtractSkipsMalformedPage(t *testing.T) {
	good := &fakePage{index: 1, width: 595, height: 842, chars: lineChars("ok", 72, 700, 11, body)}
	doc := &fakeDoc{
		path: "test.pdf",
		pages: []pdf.Page{
			&fakePage{index: 0, err: errors.New("broken stream")},
			good,
		},
	}

	containers, _ := NewExtractor(WithExtractorLogger(zap.NewNop())).ExtractDocument(doc)
	if len(containers) != 1 {
		t.Fatalf("got %d containers, want 1", len(containers))
	}
	if containers[0].PageIndex != 1 {
		t.Errorf("page = %d, want 1", containers[0].PageIndex)
	}
}

func TestExtractMultiPage(t *testing.T) {
	doc := &fakeDoc{
		path: "test.pdf",
		pages: []pdf.Page{
			&fakePage{index: 0, width: 595, height: 842, chars: lineChars("first", 72, 700, 11, body)},
			&fakePage{index: 1, width: 595, height: 842, chars: lineChars("second", 72, 700, 11, body)},
		},
	}

	containers, _ := NewExtractor().ExtractDocument(doc)
	if len(containers) != 2 {
		t.Fatalf("got %d containers, want 2", len(containers))
	}
	if containers[0].PageIndex != 0 || containers[1].PageIndex != 1 {
		t.Errorf("page order wrong: %d, %d", containers[0].PageIndex, containers[1].PageIndex)
	}
}

func TestStyleEqualTolerance(t *testing.T) {
	a := TextStyle{FontName: "Helvetica", FontSize: 11.0, Color: pdf.Black}
	b := TextStyle{FontName: "Helvetica", FontSize: 11.04, Color: pdf.Black}
	c := TextStyle{FontName: "Helvetica", FontSize: 11.2, Color: pdf.Black}

	if !a.Equal(b) {
		t.Error("sizes within tolerance compared unequal")
	}
	if a.Equal(c) {
		t.Error("sizes outside tolerance compared equal")
	}
	if a.Key() == c.Key() {
		t.Error("distinct sizes share a key")
	}
}
