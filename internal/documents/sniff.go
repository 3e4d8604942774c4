package documents

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrBinary is returned for content that does not look like text.
var ErrBinary = errors.New("file is binary so cannot be edited")

// chunkLength is the size of each window IsBinary inspects.
const chunkLength = 24

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// IsBinary samples a window at the start, the middle and the end of data. A window that
// does not decode as UTF-8, or that holds a replacement character or a control character
// at or below U+0008, marks the data as binary. Empty data is text.
func IsBinary(data []byte) bool {
	if chunkIsBinary(data, 0) {
		return true
	}
	if chunkIsBinary(data, max(0, len(data)/2-chunkLength)) {
		return true
	}
	return chunkIsBinary(data, max(0, len(data)-chunkLength))
}

func chunkIsBinary(data []byte, begin int) bool {
	begin = runeStart(data, begin)
	if begin < 0 {
		return true
	}
	end := runeEnd(data, min(len(data), begin+chunkLength))
	if end > len(data) {
		return true
	}

	chunk := data[begin:end]
	for len(chunk) > 0 {
		r, size := utf8.DecodeRune(chunk)
		if r == utf8.RuneError || r <= 8 {
			return true
		}
		chunk = chunk[size:]
	}
	return false
}

// runeStart moves begin back to the first byte of the UTF-8 sequence it falls inside,
// or returns -1 when no sequence start is found within three bytes.
func runeStart(data []byte, begin int) int {
	if begin == 0 || begin >= len(data) || utf8.RuneStart(data[begin]) {
		return begin
	}
	for back := 1; back <= 3 && begin-back >= 0; back++ {
		if utf8.RuneStart(data[begin-back]) {
			return begin - back
		}
	}
	return -1
}

// runeEnd moves end forward so a sequence started before it is not cut. The result may
// exceed len(data) when the data itself ends mid-sequence.
func runeEnd(data []byte, end int) int {
	if end == len(data) {
		return end
	}
	for back := 1; back <= 3 && end-back >= 0; back++ {
		b := data[end-back]
		if !utf8.RuneStart(b) {
			continue
		}
		need := sequenceLength(b)
		if need > back {
			return end + need - back
		}
		return end
	}
	return end
}

func sequenceLength(b byte) int {
	switch {
	case b&0x80 == 0:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// Decode turns file content into editor text. Content carrying a UTF-16 byte order mark
// is transcoded first; a UTF-8 byte order mark is dropped.
func Decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", err
		}
		data = decoded
	}
	if IsBinary(data) {
		return "", ErrBinary
	}
	return string(bytes.TrimPrefix(data, bomUTF8)), nil
}
