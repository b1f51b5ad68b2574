package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ContentEdit is one page-scoped rewrite: regions to blank out and the
// operators that draw the replacement on top of them.
type ContentEdit struct {
	PageIndex int
	Clear     []BoundingBox
	Ops       []byte
	Fonts     []FallbackFont
}

// FallbackFont names a standard font resource the edit operators
// reference. The writer registers it on the page if it is not already
// present.
type FallbackFont struct {
	Res      string
	BaseFont string
}

// ContextProvider is implemented by backends whose parsed structures
// can be rewritten in place.
type ContextProvider interface {
	Context() *model.Context
}

// ApplyEdits applies the edits to the document's parsed structures,
// one overlay content stream per touched page. Callers apply a batch
// of edits at most once; serialization is a separate step so a failed
// write never re-applies them.
func ApplyEdits(doc Document, edits []ContentEdit, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(edits) == 0 {
		return nil
	}

	provider, ok := doc.(ContextProvider)
	if !ok {
		return fmt.Errorf("applying edits: document backend is read-only")
	}
	ctx := provider.Context()

	byPage := map[int][]ContentEdit{}
	for _, e := range edits {
		if e.PageIndex < 0 || e.PageIndex >= ctx.PageCount {
			return fmt.Errorf("edit on page %d of %d: %w", e.PageIndex, ctx.PageCount, ErrIndexOutOfRange)
		}
		byPage[e.PageIndex] = append(byPage[e.PageIndex], e)
	}

	for pageIndex, pageEdits := range byPage {
		if err := applyPageEdits(ctx, pageIndex, pageEdits); err != nil {
			return fmt.Errorf("editing page %d: %w", pageIndex, err)
		}
		log.Debug("applied page edits",
			zap.Int("page", pageIndex),
			zap.Int("count", len(pageEdits)))
	}
	return nil
}

// WriteDocument serializes the document to outPath. An unmodified
// document is copied byte for byte. The output appears atomically
// either way: a failure leaves no partial file.
func WriteDocument(doc Document, outPath string, modified bool) error {
	if !modified {
		return copyFile(doc.Path(), outPath)
	}
	provider, ok := doc.(ContextProvider)
	if !ok {
		return fmt.Errorf("writing %s: document backend is read-only", outPath)
	}
	return writeAtomic(provider.Context(), outPath)
}

// applyPageEdits appends one overlay content stream to the page and
// registers any fonts the overlay needs.
func applyPageEdits(ctx *model.Context, pageIndex int, edits []ContentEdit) error {
	pageDict, _, attrs, err := ctx.PageDict(pageIndex+1, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	var buf []byte
	buf = append(buf, "q\n"...)
	for _, e := range edits {
		for _, r := range e.Clear {
			buf = append(buf, fmt.Sprintf("1 1 1 rg %.2f %.2f %.2f %.2f re f\n",
				r.X0, r.Y0, r.Width(), r.Height())...)
		}
	}
	buf = append(buf, "Q\n"...)
	for _, e := range edits {
		buf = append(buf, e.Ops...)
	}

	sd, err := ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return err
	}
	ir, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}

	if err := appendContents(ctx, pageDict, *ir); err != nil {
		return err
	}

	for _, e := range edits {
		for _, f := range e.Fonts {
			if err := registerFont(ctx, pageDict, attrs, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendContents rewrites the page Contents entry as a direct array
// ending with the overlay stream.
func appendContents(ctx *model.Context, pageDict types.Dict, overlay types.IndirectRef) error {
	obj, found := pageDict.Find("Contents")
	if !found {
		pageDict["Contents"] = overlay
		return nil
	}

	var arr types.Array
	resolved, err := ctx.Dereference(obj)
	if err != nil {
		return err
	}
	if existing, ok := resolved.(types.Array); ok {
		arr = append(arr, existing...)
	} else {
		arr = append(arr, obj)
	}
	arr = append(arr, overlay)
	pageDict["Contents"] = arr
	return nil
}

// registerFont makes sure the page resources carry the fallback font
// under its expected resource name.
func registerFont(ctx *model.Context, pageDict types.Dict, attrs *model.InheritedPageAttrs, f FallbackFont) error {
	var resources types.Dict
	if obj, found := pageDict.Find("Resources"); found {
		if d, ok := derefDict(ctx, obj); ok {
			resources = d
		}
	}
	if resources == nil && attrs != nil && attrs.Resources != nil {
		// adopt the inherited dict so existing operators keep resolving
		resources = attrs.Resources
		pageDict["Resources"] = resources
	}
	if resources == nil {
		resources = types.Dict{}
		pageDict["Resources"] = resources
	}

	var fonts types.Dict
	if obj, found := resources.Find("Font"); found {
		if d, ok := derefDict(ctx, obj); ok {
			fonts = d
		}
	}
	if fonts == nil {
		fonts = types.Dict{}
		resources["Font"] = fonts
	}

	if _, found := fonts.Find(f.Res); found {
		return nil
	}

	fontDict := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(f.BaseFont),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ir, err := ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return err
	}
	fonts[f.Res] = *ir
	return nil
}

// writeAtomic serializes the context to a temp file next to outPath
// and renames it into place.
func writeAtomic(ctx *model.Context, outPath string) (err error) {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".pdfstyle-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmpPath))
		}
	}()

	if werr := api.WriteContext(ctx, tmp); werr != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", outPath, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		return fmt.Errorf("writing %s: %w", outPath, cerr)
	}
	if rerr := os.Rename(tmpPath, outPath); rerr != nil {
		return fmt.Errorf("writing %s: %w", outPath, rerr)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".pdfstyle-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, cerr := io.Copy(tmp, in); cerr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copying to %s: %w", dst, cerr)
	}
	if cerr := tmp.Close(); cerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copying to %s: %w", dst, cerr)
	}
	if rerr := os.Rename(tmpPath, dst); rerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copying to %s: %w", dst, rerr)
	}
	return nil
}
