package pdf

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Font descriptor flag bits from the PDF specification.
const (
	fontFlagItalic    = 1 << 6
	fontFlagForceBold = 1 << 18
)

// FontInfo carries what the content parser and the replacement planner
// need to know about one font resource on a page.
type FontInfo struct {
	Res        string // resource name, e.g. "F1"
	BaseFont   string
	Encoding   string
	Bold       bool
	Italic     bool
	FlagsKnown bool // true when Bold/Italic come from descriptor flags

	FirstChar    int
	Widths       []float64 // glyph widths in text space units (1/1000)
	MissingWidth float64

	ToUnicode *ToUnicodeCMap
}

// GlyphWidth returns the width factor for a character code, in text
// space units scaled to 1.0 per em. Falls back to a per-class estimate
// when the font carries no metrics.
func (f *FontInfo) GlyphWidth(code uint16, decoded string) float64 {
	if f != nil && f.Widths != nil {
		idx := int(code) - f.FirstChar
		if idx >= 0 && idx < len(f.Widths) && f.Widths[idx] > 0 {
			return f.Widths[idx] / 1000
		}
		if f.MissingWidth > 0 {
			return f.MissingWidth / 1000
		}
	}
	return estimateGlyphWidth(decoded)
}

// estimateGlyphWidth approximates a width factor per character class.
// Used only for fonts without a Widths array.
func estimateGlyphWidth(s string) float64 {
	switch s {
	case " ":
		return 0.25
	case "i", "l", "I", "j", "!", ".", ",", ";", ":", "'", "\"", "|":
		return 0.3
	case "m", "M", "W", "w":
		return 0.85
	default:
		return 0.5
	}
}

// extractPageFonts pulls font information from a page's resource
// dictionary. Fonts that cannot be resolved are skipped; the parser
// degrades to defaults for text shown with them.
func extractPageFonts(ctx *model.Context, resources types.Dict) map[string]*FontInfo {
	fonts := make(map[string]*FontInfo)
	if resources == nil {
		return fonts
	}

	fontDict, ok := derefDict(ctx, resources["Font"])
	if !ok {
		return fonts
	}

	for res, ref := range fontDict {
		fd, ok := derefDict(ctx, ref)
		if !ok {
			continue
		}

		info := &FontInfo{Res: res, FirstChar: -1}

		if name, ok := fd["BaseFont"].(types.Name); ok {
			info.BaseFont = stripSubsetTag(string(name))
		}
		if enc, ok := fd["Encoding"].(types.Name); ok {
			info.Encoding = string(enc)
		}
		if fc, ok := derefInt(ctx, fd["FirstChar"]); ok {
			info.FirstChar = fc
		}
		if widths, ok := derefArray(ctx, fd["Widths"]); ok && info.FirstChar >= 0 {
			info.Widths = make([]float64, 0, len(widths))
			for _, w := range widths {
				f, _ := derefFloat(ctx, w)
				info.Widths = append(info.Widths, f)
			}
		}

		if desc, ok := derefDict(ctx, fd["FontDescriptor"]); ok {
			if flags, ok := derefInt(ctx, desc["Flags"]); ok {
				info.FlagsKnown = true
				info.Italic = flags&fontFlagItalic != 0
				info.Bold = flags&fontFlagForceBold != 0
			}
			if mw, ok := derefFloat(ctx, desc["MissingWidth"]); ok {
				info.MissingWidth = mw
			}
			// ForceBold is rarely set even for bold faces, so the name
			// heuristic below still decides when it says bold.
		}
		if !info.Bold || !info.Italic {
			bold, italic := InferBoldItalic(info.BaseFont)
			info.Bold = info.Bold || bold
			info.Italic = info.Italic || italic
		}

		if tu := fd["ToUnicode"]; tu != nil {
			if data, ok := derefStreamBytes(ctx, tu); ok && len(data) > 0 {
				info.ToUnicode = ParseToUnicodeCMap(data)
			}
		}

		fonts[res] = info
	}

	return fonts
}

// InferBoldItalic derives weight and slant from a base font name.
// This is a documented heuristic for fonts whose descriptors do not
// state the flags: subfamily substrings decide.
func InferBoldItalic(baseFont string) (bold, italic bool) {
	name := strings.ToLower(baseFont)
	bold = strings.Contains(name, "bold")
	italic = strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	return bold, italic
}

// stripSubsetTag removes the "ABCDEF+" subset prefix embedded fonts carry.
func stripSubsetTag(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for i := 0; i < 6; i++ {
			if name[i] < 'A' || name[i] > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

// Dereference helpers over pdfcpu objects. pdfcpu hands back indirect
// references both by value and by pointer depending on the source, so
// each helper accepts either.

func derefDict(ctx *model.Context, obj types.Object) (types.Dict, bool) {
	switch v := obj.(type) {
	case types.Dict:
		return v, true
	case types.IndirectRef:
		d, err := ctx.DereferenceDict(v)
		return d, err == nil && d != nil
	case *types.IndirectRef:
		d, err := ctx.DereferenceDict(*v)
		return d, err == nil && d != nil
	}
	return nil, false
}

func derefArray(ctx *model.Context, obj types.Object) (types.Array, bool) {
	switch v := obj.(type) {
	case types.Array:
		return v, true
	case types.IndirectRef:
		a, err := ctx.DereferenceArray(v)
		return a, err == nil && a != nil
	case *types.IndirectRef:
		a, err := ctx.DereferenceArray(*v)
		return a, err == nil && a != nil
	}
	return nil, false
}

func derefInt(ctx *model.Context, obj types.Object) (int, bool) {
	resolved := resolve(ctx, obj)
	if i, ok := resolved.(types.Integer); ok {
		return int(i), true
	}
	return 0, false
}

func derefFloat(ctx *model.Context, obj types.Object) (float64, bool) {
	switch v := resolve(ctx, obj).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func derefStreamBytes(ctx *model.Context, obj types.Object) ([]byte, bool) {
	var ref types.IndirectRef
	switch v := obj.(type) {
	case types.IndirectRef:
		ref = v
	case *types.IndirectRef:
		ref = *v
	default:
		return nil, false
	}
	sd, _, err := ctx.DereferenceStreamDict(ref)
	if err != nil || sd == nil {
		return nil, false
	}
	if err := sd.Decode(); err != nil {
		return nil, false
	}
	return sd.Content, true
}

func resolve(ctx *model.Context, obj types.Object) types.Object {
	switch v := obj.(type) {
	case types.IndirectRef:
		if o, err := ctx.Dereference(v); err == nil {
			return o
		}
	case *types.IndirectRef:
		if o, err := ctx.Dereference(*v); err == nil {
			return o
		}
	}
	return obj
}
