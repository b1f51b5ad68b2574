package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

type pdfcpuPage struct {
	ctx   *model.Context
	index int
	log   *zap.Logger

	width  float64
	height float64

	parsed bool
	chars  []CharObject
	fonts  map[string]*FontInfo
	err    error
}

func newPdfcpuPage(ctx *model.Context, index int, log *zap.Logger) *pdfcpuPage {
	p := &pdfcpuPage{ctx: ctx, index: index, log: log}

	_, _, attrs, err := ctx.PageDict(index+1, false)
	if err != nil {
		p.err = fmt.Errorf("page %d: %w: %v", index, ErrMalformedPage, err)
		return p
	}
	if attrs != nil && attrs.MediaBox != nil {
		p.width = attrs.MediaBox.Width()
		p.height = attrs.MediaBox.Height()
	}
	return p
}

func (p *pdfcpuPage) Index() int      { return p.index }
func (p *pdfcpuPage) Width() float64  { return p.width }
func (p *pdfcpuPage) Height() float64 { return p.height }

func (p *pdfcpuPage) BBox() BoundingBox {
	return BoundingBox{X0: 0, Y0: 0, X1: p.width, Y1: p.height}
}

// Chars parses the page content on first use. A decode failure marks
// the page with Err and yields no characters.
func (p *pdfcpuPage) Chars() []CharObject {
	if !p.parsed {
		p.parse()
	}
	return p.chars
}

func (p *pdfcpuPage) Err() error {
	if !p.parsed {
		p.parse()
	}
	return p.err
}

// Fonts returns the page font table, keyed by resource name.
func (p *pdfcpuPage) Fonts() map[string]*FontInfo {
	if !p.parsed {
		p.parse()
	}
	return p.fonts
}

func (p *pdfcpuPage) parse() {
	p.parsed = true
	if p.err != nil {
		return
	}

	pageDict, _, attrs, err := p.ctx.PageDict(p.index+1, false)
	if err != nil {
		p.err = fmt.Errorf("page %d: %w: %v", p.index, ErrMalformedPage, err)
		return
	}

	content, err := p.pageContent(pageDict)
	if err != nil {
		p.err = fmt.Errorf("page %d: %w: %v", p.index, ErrMalformedPage, err)
		p.log.Warn("skipping page content",
			zap.Int("page", p.index),
			zap.Error(err))
		return
	}

	resources := p.pageResources(pageDict, attrs)
	p.fonts = extractPageFonts(p.ctx, resources)

	parser := NewContentParser(p.fonts)
	p.chars = parser.Parse(content)
}

// pageContent concatenates the page's content streams. Contents may be
// a single stream reference or an array of them.
func (p *pdfcpuPage) pageContent(pageDict types.Dict) ([]byte, error) {
	obj, found := pageDict.Find("Contents")
	if !found {
		return nil, nil
	}

	var buf []byte
	appendStream := func(o types.Object) error {
		sd, _, err := p.ctx.DereferenceStreamDict(o)
		if err != nil {
			return err
		}
		if sd == nil {
			return nil
		}
		if err := sd.Decode(); err != nil {
			return err
		}
		buf = append(buf, sd.Content...)
		buf = append(buf, '\n')
		return nil
	}

	switch o := obj.(type) {
	case types.Array:
		for _, elem := range o {
			if err := appendStream(elem); err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		resolved, err := p.ctx.Dereference(obj)
		if err != nil {
			return nil, err
		}
		if arr, ok := resolved.(types.Array); ok {
			for _, elem := range arr {
				if err := appendStream(elem); err != nil {
					return nil, err
				}
			}
			return buf, nil
		}
		if err := appendStream(obj); err != nil {
			return nil, err
		}
		return buf, nil
	}
}

func (p *pdfcpuPage) pageResources(pageDict types.Dict, attrs *model.InheritedPageAttrs) types.Dict {
	if obj, found := pageDict.Find("Resources"); found {
		if d, ok := derefDict(p.ctx, obj); ok {
			return d
		}
	}
	if attrs != nil && attrs.Resources != nil {
		return attrs.Resources
	}
	return nil
}
