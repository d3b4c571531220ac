// Package ebcdic converts between Go strings and the EBCDIC (CCSID 37)
// byte values the signon host expects for user IDs and legacy password
// fields. Only the signon character set is covered: letters, digits,
// blank, and the national characters $ # @ plus underscore, period and
// hyphen.
package ebcdic

import (
	"errors"
	"fmt"
)

var ErrUnencodable = errors.New("ebcdic: character outside signon character set")

const Blank = 0x40

var encodePairs = []struct {
	r rune
	b byte
}{
	{' ', 0x40},
	{'.', 0x4B},
	{'$', 0x5B},
	{'-', 0x60},
	{'_', 0x6D},
	{'#', 0x7B},
	{'@', 0x7C},
	{'A', 0xC1}, {'B', 0xC2}, {'C', 0xC3}, {'D', 0xC4}, {'E', 0xC5},
	{'F', 0xC6}, {'G', 0xC7}, {'H', 0xC8}, {'I', 0xC9},
	{'J', 0xD1}, {'K', 0xD2}, {'L', 0xD3}, {'M', 0xD4}, {'N', 0xD5},
	{'O', 0xD6}, {'P', 0xD7}, {'Q', 0xD8}, {'R', 0xD9},
	{'S', 0xE2}, {'T', 0xE3}, {'U', 0xE4}, {'V', 0xE5}, {'W', 0xE6},
	{'X', 0xE7}, {'Y', 0xE8}, {'Z', 0xE9},
	{'a', 0x81}, {'b', 0x82}, {'c', 0x83}, {'d', 0x84}, {'e', 0x85},
	{'f', 0x86}, {'g', 0x87}, {'h', 0x88}, {'i', 0x89},
	{'j', 0x91}, {'k', 0x92}, {'l', 0x93}, {'m', 0x94}, {'n', 0x95},
	{'o', 0x96}, {'p', 0x97}, {'q', 0x98}, {'r', 0x99},
	{'s', 0xA2}, {'t', 0xA3}, {'u', 0xA4}, {'v', 0xA5}, {'w', 0xA6},
	{'x', 0xA7}, {'y', 0xA8}, {'z', 0xA9},
	{'0', 0xF0}, {'1', 0xF1}, {'2', 0xF2}, {'3', 0xF3}, {'4', 0xF4},
	{'5', 0xF5}, {'6', 0xF6}, {'7', 0xF7}, {'8', 0xF8}, {'9', 0xF9},
}

var (
	encodeTable map[rune]byte
	decodeTable map[byte]rune
)

func init() {
	encodeTable = make(map[rune]byte, len(encodePairs))
	decodeTable = make(map[byte]rune, len(encodePairs))
	for _, p := range encodePairs {
		encodeTable[p.r] = p.b
		decodeTable[p.b] = p.r
	}
}

// Encode converts s to CCSID 37 bytes.
func Encode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := encodeTable[r]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnencodable, r)
		}
		out = append(out, b)
	}
	return out, nil
}

// EncodePadded converts s and blank-pads the result to exactly width
// bytes. Strings longer than width are rejected.
func EncodePadded(s string, width int) ([]byte, error) {
	enc, err := Encode(s)
	if err != nil {
		return nil, err
	}
	if len(enc) > width {
		return nil, fmt.Errorf("ebcdic: %q longer than field width %d", s, width)
	}
	out := make([]byte, width)
	copy(out, enc)
	for i := len(enc); i < width; i++ {
		out[i] = Blank
	}
	return out, nil
}

// Decode converts CCSID 37 bytes back to a string.
func Decode(b []byte) (string, error) {
	out := make([]rune, 0, len(b))
	for _, c := range b {
		r, ok := decodeTable[c]
		if !ok {
			return "", fmt.Errorf("%w: 0x%02X", ErrUnencodable, c)
		}
		out = append(out, r)
	}
	return string(out), nil
}

// DecodeTrimmed decodes b and strips trailing blank padding.
func DecodeTrimmed(b []byte) (string, error) {
	end := len(b)
	for end > 0 && b[end-1] == Blank {
		end--
	}
	return Decode(b[:end])
}
