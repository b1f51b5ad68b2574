package pdf

// BoundingBox represents a rectangular area in page space.
// Coordinates are in points with the origin at the bottom-left of the
// page, matching the PDF coordinate system: Y0 is the lower edge.
type BoundingBox struct {
	X0 float64 // Left
	Y0 float64 // Bottom
	X1 float64 // Right
	Y1 float64 // Top
}

// Width returns the width of the bounding box.
func (b BoundingBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the height of the bounding box.
func (b BoundingBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Contains checks if a point is within the bounding box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Intersects checks if two bounding boxes intersect.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return !(b.X1 < other.X0 || b.X0 > other.X1 || b.Y1 < other.Y0 || b.Y0 > other.Y1)
}

// Union returns the smallest bounding box covering both boxes.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		X0: min(b.X0, other.X0),
		Y0: min(b.Y0, other.Y0),
		X1: max(b.X1, other.X1),
		Y1: max(b.Y1, other.Y1),
	}
}

// Expand returns the bounding box grown by tol on each side.
func (b BoundingBox) Expand(tol float64) BoundingBox {
	return BoundingBox{X0: b.X0 - tol, Y0: b.Y0 - tol, X1: b.X1 + tol, Y1: b.Y1 + tol}
}

// Color represents an RGB color with 8-bit channels.
type Color struct {
	R, G, B uint8
}

// Black is the default text fill color.
var Black = Color{R: 0, G: 0, B: 0}

// CharObject represents a single positioned character decoded from a
// page content stream, together with the raw style attributes it was
// rendered with. Y0 is the glyph baseline; Y1 approximates the top of
// the glyph box.
type CharObject struct {
	Text     string
	FontRes  string // font resource name on the page, e.g. "F1"
	BaseFont string // base font name, e.g. "Helvetica-Bold"
	FontSize float64
	Bold     bool // from the font descriptor flags when present
	Italic   bool
	X0       float64
	Y0       float64 // baseline
	X1       float64
	Y1       float64
	Width    float64
	Color    Color // fill color the glyph was painted with
}

// GetBBox returns the character's bounding box.
func (c CharObject) GetBBox() BoundingBox {
	return BoundingBox{X0: c.X0, Y0: c.Y0, X1: c.X1, Y1: c.Y1}
}
