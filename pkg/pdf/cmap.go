package pdf

import (
	"encoding/hex"
	"regexp"
	"strings"
)

// ToUnicodeCMap maps character codes from a font's ToUnicode stream to
// Unicode strings. Only the beginbfchar and contiguous beginbfrange
// forms are handled; array-form ranges are rare in generated documents
// and fall through to the identity mapping.
type ToUnicodeCMap struct {
	codeToUnicode map[uint16]string
	ranges        []cmapRange
}

type cmapRange struct {
	start, end uint16
	dst        uint16
}

var (
	bfCharSectionRe  = regexp.MustCompile(`beginbfchar\s*((?:<[0-9A-Fa-f]+>\s*<[0-9A-Fa-f]+>\s*)+)endbfchar`)
	bfCharPairRe     = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>`)
	bfRangeSectionRe = regexp.MustCompile(`beginbfrange\s*((?:<[0-9A-Fa-f]+>\s*<[0-9A-Fa-f]+>\s*<[0-9A-Fa-f]+>\s*)+)endbfrange`)
	bfRangeTripleRe  = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>`)
)

// ParseToUnicodeCMap parses the raw bytes of a ToUnicode CMap stream.
func ParseToUnicodeCMap(data []byte) *ToUnicodeCMap {
	cmap := &ToUnicodeCMap{codeToUnicode: make(map[uint16]string)}
	content := string(data)

	for _, section := range bfCharSectionRe.FindAllStringSubmatch(content, -1) {
		for _, pair := range bfCharPairRe.FindAllStringSubmatch(section[1], -1) {
			code, ok := hexCode(pair[1])
			if !ok {
				continue
			}
			if dst := hexUnicode(pair[2]); dst != "" {
				cmap.codeToUnicode[code] = dst
			}
		}
	}

	for _, section := range bfRangeSectionRe.FindAllStringSubmatch(content, -1) {
		for _, triple := range bfRangeTripleRe.FindAllStringSubmatch(section[1], -1) {
			start, ok1 := hexCode(triple[1])
			end, ok2 := hexCode(triple[2])
			dst, ok3 := hexCode(triple[3])
			if !ok1 || !ok2 || !ok3 || end < start {
				continue
			}
			cmap.ranges = append(cmap.ranges, cmapRange{start: start, end: end, dst: dst})
		}
	}

	return cmap
}

// Lookup maps a character code to its Unicode string.
func (cmap *ToUnicodeCMap) Lookup(code uint16) (string, bool) {
	if s, ok := cmap.codeToUnicode[code]; ok {
		return s, true
	}
	for _, r := range cmap.ranges {
		if code >= r.start && code <= r.end {
			return string(rune(r.dst + (code - r.start))), true
		}
	}
	return "", false
}

// Len returns the number of codes the CMap covers.
func (cmap *ToUnicodeCMap) Len() int {
	n := len(cmap.codeToUnicode)
	for _, r := range cmap.ranges {
		n += int(r.end-r.start) + 1
	}
	return n
}

// hexCode parses up to two big-endian bytes of hex as a character code.
func hexCode(s string) (uint16, bool) {
	if len(s)%2 != 0 {
		s = s + "0"
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return 0, false
	}
	if len(b) == 1 {
		return uint16(b[0]), true
	}
	return uint16(b[0])<<8 | uint16(b[1]), true
}

// hexUnicode decodes a hex destination as UTF-16BE (including
// surrogate pairs) into a Go string.
func hexUnicode(s string) string {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i])<<8 | uint16(b[i+1])
		if u >= 0xD800 && u <= 0xDBFF && i+3 < len(b) {
			low := uint16(b[i+2])<<8 | uint16(b[i+3])
			if low >= 0xDC00 && low <= 0xDFFF {
				cp := 0x10000 + (uint32(u)&0x3FF)<<10 + uint32(low)&0x3FF
				sb.WriteRune(rune(cp))
				i += 2
				continue
			}
		}
		sb.WriteRune(rune(u))
	}
	if len(b) == 1 {
		sb.WriteRune(rune(b[0]))
	}
	return sb.String()
}
