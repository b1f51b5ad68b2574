package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Option configures how a document is opened.
type Option func(*openOptions)

type openOptions struct {
	password string
	log      *zap.Logger
}

// WithPassword supplies a user or owner password for encrypted files.
func WithPassword(pw string) Option {
	return func(o *openOptions) { o.password = pw }
}

// WithLogger routes open and decode warnings to the given logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *openOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func applyOptions(opts []Option) openOptions {
	o := openOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// pdfcpuDocument is the primary backend. It keeps the parsed pdfcpu
// context alive so the editing layer can rewrite the same structures
// it extracted from.
type pdfcpuDocument struct {
	path  string
	ctx   *model.Context
	pages []*pdfcpuPage
	log   *zap.Logger
}

// Open reads a PDF with pdfcpu and prepares its pages for extraction.
// Pages that fail to decode are kept with their error recorded rather
// than failing the whole document.
func Open(path string, opts ...Option) (Document, error) {
	o := applyOptions(opts)

	var (
		ctx *model.Context
		err error
	)
	if o.password == "" {
		ctx, err = api.ReadContextFile(path)
	} else {
		conf := model.NewDefaultConfiguration()
		conf.UserPW = o.password
		conf.OwnerPW = o.password
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		ctx, err = api.ReadContext(f, conf)
		f.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		o.log.Warn("document validation reported problems",
			zap.String("path", path),
			zap.Error(err))
	}

	doc := &pdfcpuDocument{
		path: path,
		ctx:  ctx,
		log:  o.log,
	}
	for i := 0; i < ctx.PageCount; i++ {
		doc.pages = append(doc.pages, newPdfcpuPage(ctx, i, o.log))
	}
	return doc, nil
}

func (d *pdfcpuDocument) PageCount() int {
	return len(d.pages)
}

func (d *pdfcpuDocument) Page(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(d.pages), ErrIndexOutOfRange)
	}
	return d.pages[index], nil
}

func (d *pdfcpuDocument) Pages() []Page {
	pages := make([]Page, len(d.pages))
	for i, p := range d.pages {
		pages[i] = p
	}
	return pages
}

func (d *pdfcpuDocument) Path() string {
	return d.path
}

// Context exposes the underlying pdfcpu context for the writer.
func (d *pdfcpuDocument) Context() *model.Context {
	return d.ctx
}

func (d *pdfcpuDocument) Close() error {
	return nil
}
