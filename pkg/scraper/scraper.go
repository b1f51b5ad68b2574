// Package scraper answers queries against extracted containers and
// tables. Lookups that match nothing return empty results rather than
// errors; only malformed input is an error.
package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
	"github.com/docpatch/pdfstyle-golang/pkg/style"
)

// Scraper indexes the extraction output of one document.
type Scraper struct {
	containers []*style.TextContainer
	tables     []*style.Table
}

// New creates a scraper over extracted containers and tables.
func New(containers []*style.TextContainer, tables []*style.Table) *Scraper {
	return &Scraper{containers: containers, tables: tables}
}

// Containers returns every container in reading order.
func (s *Scraper) Containers() []*style.TextContainer {
	return s.containers
}

// Tables returns every detected table in page order.
func (s *Scraper) Tables() []*style.Table {
	return s.tables
}

// textMatch holds text query behavior; the zero value is a
// case-sensitive substring match.
type textMatch struct {
	exact      bool
	ignoreCase bool
}

// TextMatchOption adjusts how FindByText compares strings.
type TextMatchOption func(*textMatch)

// ExactMatch requires the whole container text to equal the query.
func ExactMatch() TextMatchOption {
	return func(m *textMatch) { m.exact = true }
}

// IgnoreCase makes the comparison case-insensitive.
func IgnoreCase() TextMatchOption {
	return func(m *textMatch) { m.ignoreCase = true }
}

// FindByText returns the containers whose text matches the query.
func (s *Scraper) FindByText(query string, opts ...TextMatchOption) []*style.TextContainer {
	var m textMatch
	for _, opt := range opts {
		opt(&m)
	}

	q := query
	if m.ignoreCase {
		q = strings.ToLower(q)
	}

	var out []*style.TextContainer
	for _, c := range s.containers {
		text := c.Text
		if m.ignoreCase {
			text = strings.ToLower(text)
		}
		if m.exact && text == q || !m.exact && strings.Contains(text, q) {
			out = append(out, c)
		}
	}
	return out
}

// FindByRegex returns the containers whose text matches the pattern.
// A pattern that does not compile yields ErrInvalidPattern.
func (s *Scraper) FindByRegex(pattern string) ([]*style.TextContainer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", pdf.ErrInvalidPattern, pattern, err)
	}

	var out []*style.TextContainer
	for _, c := range s.containers {
		if re.MatchString(c.Text) {
			out = append(out, c)
		}
	}
	return out, nil
}

type positionQuery struct {
	pageIndex int
	pageSet   bool
}

// PositionOption narrows a FindByPosition query.
type PositionOption func(*positionQuery)

// OnPage restricts the query to a single page.
func OnPage(index int) PositionOption {
	return func(q *positionQuery) {
		q.pageIndex = index
		q.pageSet = true
	}
}

// FindByPosition returns the containers whose bounding box intersects
// the given region, expanded by the tolerance on all sides. The
// region applies on every page unless narrowed with OnPage.
func (s *Scraper) FindByPosition(region pdf.BoundingBox, tolerance float64, opts ...PositionOption) []*style.TextContainer {
	var q positionQuery
	for _, opt := range opts {
		opt(&q)
	}
	expanded := region.Expand(tolerance)

	var out []*style.TextContainer
	for _, c := range s.containers {
		if q.pageSet && c.PageIndex != q.pageIndex {
			continue
		}
		if c.BBox.Intersects(expanded) {
			out = append(out, c)
		}
	}
	return out
}

// ContainersInRegion returns the containers whose center point lies
// inside the region on the given page.
func (s *Scraper) ContainersInRegion(pageIndex int, region pdf.BoundingBox) []*style.TextContainer {
	var out []*style.TextContainer
	for _, c := range s.containers {
		if c.PageIndex != pageIndex {
			continue
		}
		cx := (c.BBox.X0 + c.BBox.X1) / 2
		cy := (c.BBox.Y0 + c.BBox.Y1) / 2
		if region.Contains(cx, cy) {
			out = append(out, c)
		}
	}
	return out
}

// StyleFilter narrows a FindByStyle query. Attributes without a
// filter match anything.
type StyleFilter func(style.TextStyle) bool

// FontNamed matches the exact base font name. Subset tags are already
// stripped during extraction, so "Helvetica-Bold" matches only that
// face, not the whole family.
func FontNamed(name string) StyleFilter {
	return func(st style.TextStyle) bool { return st.FontName == name }
}

// Sized matches font sizes within a small tolerance.
func Sized(points float64) StyleFilter {
	return func(st style.TextStyle) bool {
		return math.Abs(st.FontSize-points) <= 0.05
	}
}

// Colored matches an exact fill color.
func Colored(c pdf.Color) StyleFilter {
	return func(st style.TextStyle) bool { return st.Color == c }
}

// Bold matches on the bold attribute.
func Bold(want bool) StyleFilter {
	return func(st style.TextStyle) bool { return st.Bold == want }
}

// Italic matches on the italic attribute.
func Italic(want bool) StyleFilter {
	return func(st style.TextStyle) bool { return st.Italic == want }
}

// FindByStyle returns the containers whose style satisfies every
// filter.
func (s *Scraper) FindByStyle(filters ...StyleFilter) []*style.TextContainer {
	var out []*style.TextContainer
	for _, c := range s.containers {
		ok := true
		for _, f := range filters {
			if !f(c.Style) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// TablesOnPage returns the tables detected on one page.
func (s *Scraper) TablesOnPage(pageIndex int) []*style.Table {
	var out []*style.Table
	for _, t := range s.tables {
		if t.PageIndex == pageIndex {
			out = append(out, t)
		}
	}
	return out
}

// TableAt returns the table at the given document-wide index.
func (s *Scraper) TableAt(index int) (*style.Table, error) {
	if index < 0 || index >= len(s.tables) {
		return nil, fmt.Errorf("table %d of %d: %w", index, len(s.tables), pdf.ErrIndexOutOfRange)
	}
	return s.tables[index], nil
}

// FindTableByContent returns the first table with a cell containing
// the given substring.
func (s *Scraper) FindTableByContent(text string) (*style.Table, bool) {
	for _, t := range s.tables {
		if t.ContainsText(text) {
			return t, true
		}
	}
	return nil, false
}
