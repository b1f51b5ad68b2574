package pdf

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// ContentParser decodes the text-showing portion of a page content
// stream into positioned, styled characters. Path operators are
// mostly ignored, with one exception: white-filled rectangles hide
// the glyphs painted before them, so redacted or overwritten text
// does not resurface in the output.
type ContentParser struct {
	fonts map[string]*FontInfo
	chars []CharObject

	gs      graphicsState
	gsStack []graphicsState

	text       textState
	textMatrix matrix
	lineMatrix matrix

	rectPath  []BoundingBox
	whiteouts []whiteout
}

// whiteout is a white-filled rectangle and the number of characters
// shown before it was painted. Later fills cover earlier glyphs only.
type whiteout struct {
	rect BoundingBox
	seq  int
}

type graphicsState struct {
	ctm       matrix
	fillColor Color
}

type textState struct {
	font      *FontInfo
	fontRes   string
	fontSize  float64
	charSpace float64
	wordSpace float64
	scale     float64 // horizontal scaling, percent
	leading   float64
	rise      float64
}

type matrix struct {
	A, B, C, D, E, F float64
}

func identityMatrix() matrix {
	return matrix{A: 1, D: 1}
}

func translationMatrix(tx, ty float64) matrix {
	return matrix{A: 1, D: 1, E: tx, F: ty}
}

func multiplyMatrix(m1, m2 matrix) matrix {
	return matrix{
		A: m1.A*m2.A + m1.B*m2.C,
		B: m1.A*m2.B + m1.B*m2.D,
		C: m1.C*m2.A + m1.D*m2.C,
		D: m1.C*m2.B + m1.D*m2.D,
		E: m1.E*m2.A + m1.F*m2.C + m2.E,
		F: m1.E*m2.B + m1.F*m2.D + m2.F,
	}
}

// NewContentParser creates a parser over the given page font table.
func NewContentParser(fonts map[string]*FontInfo) *ContentParser {
	if fonts == nil {
		fonts = map[string]*FontInfo{}
	}
	return &ContentParser{
		fonts:      fonts,
		gs:         graphicsState{ctm: identityMatrix(), fillColor: Black},
		text:       textState{fontSize: 12, scale: 100},
		textMatrix: identityMatrix(),
		lineMatrix: identityMatrix(),
	}
}

// Parse runs the parser over a decoded content stream and returns the
// characters it shows, in stream order.
func (p *ContentParser) Parse(content []byte) []CharObject {
	tokens := tokenize(content)

	var operands []string
	for _, tok := range tokens {
		if isOperator(tok) {
			p.processOperator(tok, operands)
			operands = operands[:0]
		} else {
			operands = append(operands, tok)
		}
	}

	return p.visibleChars()
}

func (p *ContentParser) processOperator(op string, operands []string) {
	switch op {
	case "BT":
		p.textMatrix = identityMatrix()
		p.lineMatrix = identityMatrix()
	case "ET":
		// text state persists across text objects

	case "Td":
		p.textMoveBy(operands)
	case "TD":
		if len(operands) == 2 {
			p.text.leading = -parseFloat(operands[1])
		}
		p.textMoveBy(operands)
	case "Tm":
		if len(operands) == 6 {
			p.textMatrix = matrix{
				A: parseFloat(operands[0]), B: parseFloat(operands[1]),
				C: parseFloat(operands[2]), D: parseFloat(operands[3]),
				E: parseFloat(operands[4]), F: parseFloat(operands[5]),
			}
			p.lineMatrix = p.textMatrix
		}
	case "T*":
		p.nextLine()

	case "Tj":
		if len(operands) == 1 {
			p.showString(operands[0])
		}
	case "TJ":
		p.showTextArray(operands)
	case "'":
		p.nextLine()
		if len(operands) == 1 {
			p.showString(operands[0])
		}
	case "\"":
		if len(operands) == 3 {
			p.text.wordSpace = parseFloat(operands[0])
			p.text.charSpace = parseFloat(operands[1])
			p.nextLine()
			p.showString(operands[2])
		}

	case "Tc":
		if len(operands) == 1 {
			p.text.charSpace = parseFloat(operands[0])
		}
	case "Tw":
		if len(operands) == 1 {
			p.text.wordSpace = parseFloat(operands[0])
		}
	case "Tz":
		if len(operands) == 1 {
			p.text.scale = parseFloat(operands[0])
		}
	case "TL":
		if len(operands) == 1 {
			p.text.leading = parseFloat(operands[0])
		}
	case "Ts":
		if len(operands) == 1 {
			p.text.rise = parseFloat(operands[0])
		}
	case "Tf":
		if len(operands) == 2 {
			res := strings.TrimPrefix(operands[0], "/")
			p.text.fontRes = res
			p.text.font = p.fonts[res]
			p.text.fontSize = parseFloat(operands[1])
		}

	case "q":
		p.gsStack = append(p.gsStack, p.gs)
	case "Q":
		if n := len(p.gsStack); n > 0 {
			p.gs = p.gsStack[n-1]
			p.gsStack = p.gsStack[:n-1]
		}
	case "cm":
		if len(operands) == 6 {
			m := matrix{
				A: parseFloat(operands[0]), B: parseFloat(operands[1]),
				C: parseFloat(operands[2]), D: parseFloat(operands[3]),
				E: parseFloat(operands[4]), F: parseFloat(operands[5]),
			}
			p.gs.ctm = multiplyMatrix(m, p.gs.ctm)
		}

	case "rg":
		if len(operands) == 3 {
			p.gs.fillColor = colorFromFloats(
				parseFloat(operands[0]), parseFloat(operands[1]), parseFloat(operands[2]))
		}
	case "g":
		if len(operands) == 1 {
			v := parseFloat(operands[0])
			p.gs.fillColor = colorFromFloats(v, v, v)
		}
	case "k":
		if len(operands) == 4 {
			c := parseFloat(operands[0])
			m := parseFloat(operands[1])
			y := parseFloat(operands[2])
			kk := parseFloat(operands[3])
			p.gs.fillColor = colorFromFloats((1-c)*(1-kk), (1-m)*(1-kk), (1-y)*(1-kk))
		}
	case "re":
		if len(operands) == 4 {
			p.rectPath = append(p.rectPath, p.deviceRect(
				parseFloat(operands[0]), parseFloat(operands[1]),
				parseFloat(operands[2]), parseFloat(operands[3])))
		}
	case "f", "F", "f*", "B", "B*", "b", "b*":
		p.fillPath()
	case "S", "s", "n":
		p.rectPath = p.rectPath[:0]

	case "sc", "scn":
		// interpret by operand count; pattern operands are ignored
		switch len(operands) {
		case 1:
			v := parseFloat(operands[0])
			p.gs.fillColor = colorFromFloats(v, v, v)
		case 3:
			p.gs.fillColor = colorFromFloats(
				parseFloat(operands[0]), parseFloat(operands[1]), parseFloat(operands[2]))
		case 4:
			p.processOperator("k", operands)
		}
	}
	// remaining operators (paths, stroking color, XObjects, marked
	// content) only need to be recognized so operands do not leak into
	// the next text operator
}

func (p *ContentParser) textMoveBy(operands []string) {
	if len(operands) != 2 {
		return
	}
	t := translationMatrix(parseFloat(operands[0]), parseFloat(operands[1]))
	p.lineMatrix = multiplyMatrix(t, p.lineMatrix)
	p.textMatrix = p.lineMatrix
}

func (p *ContentParser) nextLine() {
	t := translationMatrix(0, -p.text.leading)
	p.lineMatrix = multiplyMatrix(t, p.lineMatrix)
	p.textMatrix = p.lineMatrix
}

// fillPath paints the pending rectangle path. Only white fills are
// kept, as occluders over the glyphs shown so far.
func (p *ContentParser) fillPath() {
	if p.gs.fillColor == (Color{R: 255, G: 255, B: 255}) {
		for _, rect := range p.rectPath {
			p.whiteouts = append(p.whiteouts, whiteout{rect: rect, seq: len(p.chars)})
		}
	}
	p.rectPath = p.rectPath[:0]
}

// deviceRect maps a rectangle through the CTM into device space.
func (p *ContentParser) deviceRect(x, y, w, h float64) BoundingBox {
	m := p.gs.ctm
	xs := [4]float64{x, x + w, x, x + w}
	ys := [4]float64{y, y, y + h, y + h}
	box := BoundingBox{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for i := 0; i < 4; i++ {
		dx := m.A*xs[i] + m.C*ys[i] + m.E
		dy := m.B*xs[i] + m.D*ys[i] + m.F
		box.X0 = math.Min(box.X0, dx)
		box.Y0 = math.Min(box.Y0, dy)
		box.X1 = math.Max(box.X1, dx)
		box.Y1 = math.Max(box.Y1, dy)
	}
	return box
}

// visibleChars drops characters whose center is covered by a white
// rectangle painted after them.
func (p *ContentParser) visibleChars() []CharObject {
	if len(p.whiteouts) == 0 {
		return p.chars
	}
	out := p.chars[:0]
	for i, c := range p.chars {
		cx := (c.X0 + c.X1) / 2
		cy := (c.Y0 + c.Y1) / 2
		covered := false
		for _, w := range p.whiteouts {
			if w.seq > i && w.rect.Contains(cx, cy) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, c)
		}
	}
	return out
}

func (p *ContentParser) showTextArray(operands []string) {
	elements := splitTextArray(strings.Join(operands, " "))
	for _, elem := range elements {
		if strings.HasPrefix(elem, "(") || strings.HasPrefix(elem, "<") {
			p.showString(elem)
			continue
		}
		// spacing adjustment in thousandths of text space
		tx := -parseFloat(elem) / 1000 * p.text.fontSize * p.text.scale / 100
		p.textMatrix.E += tx * p.textMatrix.A
		p.textMatrix.F += tx * p.textMatrix.B
	}
}

// showString decodes one string operand and emits its glyphs.
func (p *ContentParser) showString(operand string) {
	var data []byte
	switch {
	case strings.HasPrefix(operand, "(") && strings.HasSuffix(operand, ")"):
		data = unescapeStringLiteral(operand[1 : len(operand)-1])
	case strings.HasPrefix(operand, "<") && strings.HasSuffix(operand, ">"):
		data = decodeHexLiteral(operand[1 : len(operand)-1])
	default:
		return
	}

	font := p.text.font
	twoByte := font != nil && strings.HasPrefix(font.Encoding, "Identity")

	for i := 0; i < len(data); {
		var code uint16
		if twoByte {
			if i+1 < len(data) {
				code = uint16(data[i])<<8 | uint16(data[i+1])
				i += 2
			} else {
				code = uint16(data[i])
				i++
			}
		} else {
			code = uint16(data[i])
			i++
		}
		p.emitGlyph(code, font)
	}
}

// emitGlyph appends one CharObject and advances the text matrix.
func (p *ContentParser) emitGlyph(code uint16, font *FontInfo) {
	decoded := decodeGlyph(code, font)

	w0 := estimateGlyphWidth(decoded)
	if font != nil {
		w0 = font.GlyphWidth(code, decoded)
	}
	effSize := p.effectiveFontSize()
	glyphWidth := w0 * effSize

	// origin in device space: text matrix then CTM
	tx, ty := p.textMatrix.E, p.textMatrix.F+p.text.rise
	x := p.gs.ctm.A*tx + p.gs.ctm.C*ty + p.gs.ctm.E
	y := p.gs.ctm.B*tx + p.gs.ctm.D*ty + p.gs.ctm.F

	if decoded != "" {
		char := CharObject{
			Text:     decoded,
			FontSize: effSize,
			X0:       x,
			Y0:       y,
			X1:       x + glyphWidth,
			Y1:       y + effSize,
			Width:    glyphWidth,
			Color:    p.gs.fillColor,
		}
		char.FontRes = p.text.fontRes
		if font != nil {
			char.BaseFont = font.BaseFont
			char.Bold = font.Bold
			char.Italic = font.Italic
		}
		p.chars = append(p.chars, char)
	}

	// advance in text space: glyph width plus character spacing, plus
	// word spacing for single-byte space codes
	advance := w0*p.text.fontSize + p.text.charSpace
	if code == 0x20 {
		advance += p.text.wordSpace
	}
	advance *= p.text.scale / 100
	p.textMatrix.E += advance * p.textMatrix.A
	p.textMatrix.F += advance * p.textMatrix.B
}

// effectiveFontSize folds text and transformation matrix scaling into
// the nominal Tf size.
func (p *ContentParser) effectiveFontSize() float64 {
	tmScale := math.Hypot(p.textMatrix.A, p.textMatrix.B)
	ctmScale := math.Hypot(p.gs.ctm.A, p.gs.ctm.B)
	if tmScale == 0 {
		tmScale = 1
	}
	if ctmScale == 0 {
		ctmScale = 1
	}
	return p.text.fontSize * tmScale * ctmScale
}

// decodeGlyph maps a character code to text via the font's ToUnicode
// CMap, defaulting to Latin-1 for simple fonts.
func decodeGlyph(code uint16, font *FontInfo) string {
	if font != nil && font.ToUnicode != nil {
		if s, ok := font.ToUnicode.Lookup(code); ok {
			return s
		}
	}
	if code == 0 {
		return ""
	}
	return string(rune(code))
}

func colorFromFloats(r, g, b float64) Color {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(math.Round(v * 255))
	}
	return Color{R: clamp(r), G: clamp(g), B: clamp(b)}
}

// tokenize splits a content stream into operand and operator tokens.
func tokenize(content []byte) []string {
	var tokens []string
	reader := bytes.NewReader(content)

	for reader.Len() > 0 {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if isWhitespace(b) {
			continue
		}

		switch b {
		case '(':
			tokens = append(tokens, "("+readStringLiteral(reader)+")")
		case '<':
			next, _ := reader.ReadByte()
			if next == '<' {
				tokens = append(tokens, "<<")
			} else {
				reader.UnreadByte()
				tokens = append(tokens, "<"+readHexLiteral(reader)+">")
			}
		case '>':
			next, _ := reader.ReadByte()
			if next == '>' {
				tokens = append(tokens, ">>")
			} else {
				reader.UnreadByte()
			}
		case '[':
			tokens = append(tokens, "[")
		case ']':
			tokens = append(tokens, "]")
		case '/':
			tokens = append(tokens, "/"+readRegular(reader))
		case '%':
			skipComment(reader)
		default:
			reader.UnreadByte()
			if tok := readRegular(reader); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}

	return tokens
}

// readStringLiteral reads a parenthesized string, keeping escapes raw
// for later unescaping.
func readStringLiteral(reader *bytes.Reader) string {
	var out []byte
	depth := 1
	for reader.Len() > 0 {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		switch b {
		case '\\':
			next, _ := reader.ReadByte()
			out = append(out, '\\', next)
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return string(out)
			}
			out = append(out, b)
		default:
			out = append(out, b)
		}
	}
	return string(out)
}

func readHexLiteral(reader *bytes.Reader) string {
	var out []byte
	for reader.Len() > 0 {
		b, err := reader.ReadByte()
		if err != nil || b == '>' {
			break
		}
		if !isWhitespace(b) {
			out = append(out, b)
		}
	}
	return string(out)
}

func readRegular(reader *bytes.Reader) string {
	var out []byte
	for reader.Len() > 0 {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if isDelimiter(b) || isWhitespace(b) {
			reader.UnreadByte()
			break
		}
		out = append(out, b)
	}
	return string(out)
}

func skipComment(reader *bytes.Reader) {
	for reader.Len() > 0 {
		b, _ := reader.ReadByte()
		if b == '\n' || b == '\r' {
			break
		}
	}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

var contentOperators = map[string]struct{}{
	// text
	"BT": {}, "ET": {}, "Td": {}, "TD": {}, "Tm": {}, "T*": {},
	"Tj": {}, "TJ": {}, "'": {}, "\"": {},
	"Tc": {}, "Tw": {}, "Tz": {}, "TL": {}, "Tf": {}, "Tr": {}, "Ts": {},
	// graphics state
	"q": {}, "Q": {}, "cm": {}, "w": {}, "J": {}, "j": {}, "M": {}, "d": {},
	"ri": {}, "i": {}, "gs": {},
	// path construction and painting
	"m": {}, "l": {}, "c": {}, "v": {}, "y": {}, "h": {}, "re": {},
	"S": {}, "s": {}, "f": {}, "F": {}, "f*": {}, "B": {}, "B*": {},
	"b": {}, "b*": {}, "n": {},
	// color
	"CS": {}, "cs": {}, "SC": {}, "SCN": {}, "sc": {}, "scn": {},
	"G": {}, "g": {}, "RG": {}, "rg": {}, "K": {}, "k": {},
	// other
	"W": {}, "W*": {}, "BX": {}, "EX": {}, "Do": {}, "sh": {},
	"MP": {}, "DP": {}, "BMC": {}, "BDC": {}, "EMC": {},
	"BI": {}, "ID": {}, "EI": {},
}

func isOperator(token string) bool {
	_, ok := contentOperators[token]
	return ok
}

// splitTextArray breaks the body of a TJ array into string and number
// elements.
func splitTextArray(arrayStr string) []string {
	arrayStr = strings.TrimSpace(arrayStr)
	arrayStr = strings.TrimPrefix(arrayStr, "[")
	arrayStr = strings.TrimSuffix(arrayStr, "]")

	var elements []string
	var current strings.Builder
	inString := false
	inHex := false
	depth := 0

	flush := func() {
		if current.Len() > 0 {
			elements = append(elements, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(arrayStr); i++ {
		ch := arrayStr[i]
		switch {
		case inString:
			current.WriteByte(ch)
			if ch == '\\' && i+1 < len(arrayStr) {
				i++
				current.WriteByte(arrayStr[i])
			} else if ch == '(' {
				depth++
			} else if ch == ')' {
				depth--
				if depth == 0 {
					inString = false
					flush()
				}
			}
		case inHex:
			current.WriteByte(ch)
			if ch == '>' {
				inHex = false
				flush()
			}
		case ch == '(':
			flush()
			inString = true
			depth = 1
			current.WriteByte(ch)
		case ch == '<':
			flush()
			inHex = true
			current.WriteByte(ch)
		case isWhitespace(ch):
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return elements
}

// unescapeStringLiteral resolves PDF string escape sequences to bytes.
func unescapeStringLiteral(s string) []byte {
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			out = append(out, s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '(', ')', '\\':
			out = append(out, s[i])
		case '\n':
			// line continuation, emits nothing
		default:
			if s[i] >= '0' && s[i] <= '7' {
				end := i + 3
				if end > len(s) {
					end = len(s)
				}
				j := i
				for j < end && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				if v, err := strconv.ParseInt(s[i:j], 8, 16); err == nil {
					out = append(out, byte(v))
					i = j - 1
				} else {
					out = append(out, s[i])
				}
			} else {
				out = append(out, s[i])
			}
		}
	}
	return out
}

func decodeHexLiteral(s string) []byte {
	if len(s)%2 != 0 {
		s += "0"
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return out
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
