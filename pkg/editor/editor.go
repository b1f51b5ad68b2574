package editor

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docpatch/pdfstyle-golang/pkg/pdf"
	"github.com/docpatch/pdfstyle-golang/pkg/scraper"
	"github.com/docpatch/pdfstyle-golang/pkg/style"
)

// Editor accumulates replacements against an open document and writes
// them out in one save. Edits are buffered; nothing touches the file
// until Save, and a failed save leaves no partial output.
type Editor struct {
	doc      pdf.Document
	scr      *scraper.Scraper
	planner  *Planner
	pending  []pdf.ContentEdit
	modified bool
	log      *zap.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger routes edit warnings to the given logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Editor) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an editor over a document and its extraction results.
func New(doc pdf.Document, scr *scraper.Scraper, opts ...Option) *Editor {
	e := &Editor{
		doc: doc,
		scr: scr,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.planner = NewPlanner(doc, e.log)
	return e
}

// replaceOptions holds replacement behavior; the zero value preserves
// style and matches case.
type replaceOptions struct {
	plainStyle bool
	ignoreCase bool
}

// ReplaceOption adjusts replacement behavior.
type ReplaceOption func(*replaceOptions)

// PlainStyle draws the replacement in a regular black standard font
// instead of the original style.
func PlainStyle() ReplaceOption {
	return func(o *replaceOptions) { o.plainStyle = true }
}

// MatchAnyCase matches the search text case-insensitively.
func MatchAnyCase() ReplaceOption {
	return func(o *replaceOptions) { o.ignoreCase = true }
}

// ReplaceText replaces every occurrence of old across the whole
// document and returns the number of containers updated. Text that
// matches nothing is a no-op returning zero.
func (e *Editor) ReplaceText(old, new string, opts ...ReplaceOption) int {
	o := applyReplaceOptions(opts)

	findOpts := []scraper.TextMatchOption{}
	if o.ignoreCase {
		findOpts = append(findOpts, scraper.IgnoreCase())
	}
	return e.replaceIn(e.scr.FindByText(old, findOpts...), old, new, o)
}

// ReplaceTextInRegion is ReplaceText restricted to the containers
// inside a page region.
func (e *Editor) ReplaceTextInRegion(pageIndex int, region pdf.BoundingBox, old, new string, opts ...ReplaceOption) int {
	o := applyReplaceOptions(opts)

	var matched []*style.TextContainer
	for _, c := range e.scr.ContainersInRegion(pageIndex, region) {
		if containsFold(c.Text, old, o.ignoreCase) {
			matched = append(matched, c)
		}
	}
	return e.replaceIn(matched, old, new, o)
}

func (e *Editor) replaceIn(containers []*style.TextContainer, old, new string, o replaceOptions) int {
	count := 0
	for _, c := range containers {
		replaced := replaceAllFold(c.Text, old, new, o.ignoreCase)
		if replaced == c.Text {
			continue
		}
		e.pending = append(e.pending, e.planner.PlanText(c, replaced, !o.plainStyle))
		count++
	}

	if count > 0 {
		e.log.Debug("planned text replacement",
			zap.String("old", old),
			zap.String("new", new),
			zap.Int("containers", count))
	}
	return count
}

// ReplaceTable swaps the content of the table at the given index for
// new data. Smaller data clears the leftover cells; larger data
// extends the grid with the style of its last row and column.
func (e *Editor) ReplaceTable(index int, data [][]string, opts ...ReplaceOption) error {
	t, err := e.scr.TableAt(index)
	if err != nil {
		return err
	}
	o := applyReplaceOptions(opts)
	e.pending = append(e.pending, e.planner.PlanTable(t, data, !o.plainStyle)...)
	return nil
}

// ReplaceTableByContent replaces the first table containing the match
// text, reporting whether one was found.
func (e *Editor) ReplaceTableByContent(match string, data [][]string, opts ...ReplaceOption) bool {
	t, ok := e.scr.FindTableByContent(match)
	if !ok {
		return false
	}
	o := applyReplaceOptions(opts)
	e.pending = append(e.pending, e.planner.PlanTable(t, data, !o.plainStyle)...)
	return true
}

// StyleInfo returns the style of the first container whose text
// equals the given text exactly.
func (e *Editor) StyleInfo(text string) (style.TextStyle, bool) {
	matches := e.scr.FindByText(text, scraper.ExactMatch())
	if len(matches) == 0 {
		return style.TextStyle{}, false
	}
	return matches[0].Style, true
}

// StyleGroup is one distinct style and the text that uses it.
type StyleGroup struct {
	Style   style.TextStyle
	Count   int
	Samples []string
}

const maxStyleSamples = 5

// AllTextStyles partitions the document's containers by style.
func (e *Editor) AllTextStyles() map[string]StyleGroup {
	groups := map[string]StyleGroup{}
	for _, c := range e.scr.Containers() {
		key := c.Style.Key()
		g, ok := groups[key]
		if !ok {
			g = StyleGroup{Style: c.Style}
		}
		g.Count++
		if len(g.Samples) < maxStyleSamples {
			g.Samples = append(g.Samples, c.Text)
		}
		groups[key] = g
	}
	return groups
}

// PendingEdits returns the number of buffered edits.
func (e *Editor) PendingEdits() int {
	return len(e.pending)
}

// Save writes the edited document to path. Buffered edits are applied
// to the backend exactly once and drain at that point; a failed apply
// keeps them buffered for retry, and a retry after a failed write only
// re-serializes the already-applied state.
func (e *Editor) Save(path string) error {
	if len(e.pending) > 0 {
		applied := len(e.pending)
		if err := pdf.ApplyEdits(e.doc, e.pending, e.log); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		e.pending = nil
		e.modified = true
		e.log.Debug("applied buffered edits", zap.Int("edits", applied))
	}

	if err := pdf.WriteDocument(e.doc, path, e.modified); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	e.log.Info("saved document",
		zap.String("path", path),
		zap.Bool("modified", e.modified))
	return nil
}

// Close releases the underlying document.
func (e *Editor) Close() error {
	return e.doc.Close()
}

func applyReplaceOptions(opts []ReplaceOption) replaceOptions {
	var o replaceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func containsFold(s, substr string, fold bool) bool {
	if fold {
		return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
	}
	return strings.Contains(s, substr)
}

// replaceAllFold replaces every occurrence of old, optionally
// matching case-insensitively while keeping the replacement text as
// given. Folding walks both strings rune by rune: lowercasing can
// change a rune's UTF-8 length, so byte offsets into a lowered copy
// do not map back onto the original.
func replaceAllFold(s, old, new string, fold bool) string {
	if !fold {
		return strings.ReplaceAll(s, old, new)
	}
	if old == "" {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); {
		if n := foldMatchLen(s[i:], old); n > 0 {
			sb.WriteString(new)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		sb.WriteString(s[i : i+size])
		i += size
	}
	return sb.String()
}

// foldMatchLen returns the byte length of the prefix of s that
// case-folds equal to old, or zero when there is no match.
func foldMatchLen(s, old string) int {
	i := 0
	for _, or := range old {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 {
			return 0
		}
		if r != or && unicode.ToLower(r) != unicode.ToLower(or) {
			return 0
		}
		i += size
	}
	return i
}
