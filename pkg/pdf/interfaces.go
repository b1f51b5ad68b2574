package pdf

// Document represents an opened PDF document. A Document hands out its
// pages' positioned characters; higher layers build text containers and
// tables from them. Implementations are not safe for concurrent use.
type Document interface {
	// PageCount returns the total number of pages.
	PageCount() int

	// Page returns a specific page by index (0-based).
	Page(index int) (Page, error)

	// Pages returns all pages in the document.
	Pages() []Page

	// Path returns the file path the document was opened from.
	Path() string

	// Close releases resources associated with the document.
	Close() error
}

// Page represents a single page in a PDF document. Decoding is
// best-effort: a page that failed to parse reports its error through
// Err and yields no characters.
type Page interface {
	// Index returns the page index (0-based).
	Index() int

	// Width returns the page width in points.
	Width() float64

	// Height returns the page height in points.
	Height() float64

	// BBox returns the page bounding box.
	BBox() BoundingBox

	// Chars returns the positioned characters on the page in content
	// stream order.
	Chars() []CharObject

	// Err returns the decode error for this page, if any.
	Err() error
}
