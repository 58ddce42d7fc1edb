package decoder

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLegacy = "windows-1252"
)

// punctuation maps "smart" characters to single ASCII characters so that
// normalization never changes a record's character width.
var punctuation = map[rune]rune{
	'\u2013': '-',  // en dash
	'\u2014': '-',  // em dash
	'\u2019': '\'', // right single quote
	'\u00a0': ' ',  // no-break space
	'\u00ad': '-',  // soft hyphen
	'\ufffd': '?',  // replacement character
}

// text is decoded input: one rune per character plus the number of source
// bytes each rune came from, so byte offsets survive decoding.
type text struct {
	runes        []rune
	sizes        []uint8
	encoding     string
	replacements int
	// invalidUTF8 is the number of bytes that failed UTF-8 decoding, kept
	// after a legacy fallback so callers can see why it happened.
	invalidUTF8 int
}

func (t *text) byteLen(from, to int) int64 {
	var n int64
	for _, s := range t.sizes[from:to] {
		n += int64(s)
	}
	return n
}

// decodeUTF8 decodes raw leniently: each invalid byte becomes U+FFFD.
func decodeUTF8(raw []byte) *text {
	t := &text{
		runes:    make([]rune, 0, len(raw)),
		sizes:    make([]uint8, 0, len(raw)),
		encoding: EncodingUTF8,
	}
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			t.replacements++
			size = 1
		}
		t.runes = append(t.runes, r)
		t.sizes = append(t.sizes, uint8(size))
		raw = raw[size:]
	}
	return t
}

// decodeLegacy decodes raw as Windows-1252, a superset of the printable
// Latin-1 range that also covers the agency's 0x96/0x97 dashes.
func decodeLegacy(raw []byte) *text {
	t := &text{
		runes:    make([]rune, len(raw)),
		sizes:    make([]uint8, len(raw)),
		encoding: EncodingLegacy,
	}
	for i, b := range raw {
		t.runes[i] = charmap.Windows1252.DecodeByte(b)
		t.sizes[i] = 1
	}
	return t
}

// decodeText picks UTF-8 unless it yields more replacement characters than
// maxRatio allows, or force is set. With maxRatio 0 a single invalid byte
// re-decodes the whole input as Windows-1252.
func decodeText(raw []byte, maxRatio float64, force bool) *text {
	if force {
		return decodeLegacy(raw)
	}
	t := decodeUTF8(raw)
	if len(t.runes) == 0 || t.replacements == 0 {
		return t
	}
	t.invalidUTF8 = t.replacements
	if float64(t.replacements)/float64(len(t.runes)) > maxRatio {
		legacy := decodeLegacy(raw)
		legacy.invalidUTF8 = t.replacements
		return legacy
	}
	return t
}

// normalize rewrites smart punctuation in place.
func normalize(runes []rune) {
	for i, r := range runes {
		if r < 0x80 {
			continue
		}
		if repl, ok := punctuation[r]; ok {
			runes[i] = repl
		}
	}
}
