package shortcode

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Alphabet is the base62 symbol set. The order (lower, upper, digits) is part of the
// encoding: changing it changes every code derived from an id.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const base = uint64(len(Alphabet))

// ErrOverflow is returned by Decode when the value does not fit in a uint64.
var ErrOverflow = errors.New("base62: value overflows uint64")

// InvalidCharError reports a symbol outside the alphabet.
type InvalidCharError struct {
	Char rune
	Pos  int
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("base62: invalid character %q at position %d", e.Char, e.Pos)
}

// Encode converts n to base62. Encode(0) is the first alphabet symbol.
func Encode(n uint64) string {
	if n == 0 {
		return Alphabet[:1]
	}

	var buf [11]byte // ceil(64 / log2(62))
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}

// Decode is the inverse of Encode.
func Decode(code string) (uint64, error) {
	if code == "" {
		return 0, errors.New("base62: empty input")
	}
	var n uint64
	for i, c := range code {
		idx := strings.IndexRune(Alphabet, c)
		if idx < 0 {
			return 0, &InvalidCharError{Char: c, Pos: i}
		}
		if n > (math.MaxUint64-uint64(idx))/base {
			return 0, ErrOverflow
		}
		n = n*base + uint64(idx)
	}
	return n, nil
}

// Padder widens a code to at least width symbols.
type Padder func(code string, width int) string

// ZeroPad left-pads with the digit '0'. In this alphabet '0' is the value 52, not
// zero, so a padded code does not decode back to its id, and the padded code of a
// short id can equal the unpadded code of a larger one. It is kept because existing
// links were minted with it.
func ZeroPad(code string, width int) string {
	return leftPad(code, width, '0')
}

// SymbolPad left-pads with the alphabet's zero symbol, so Decode(SymbolPad(Encode(n))) == n.
func SymbolPad(code string, width int) string {
	return leftPad(code, width, Alphabet[0])
}

func leftPad(code string, width int, pad byte) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat(string(pad), width-len(code)) + code
}

// FromID derives a code from a numeric id, padded to minLength. A nil pad uses ZeroPad.
func FromID(id uint64, minLength int, pad Padder) string {
	if pad == nil {
		pad = ZeroPad
	}
	return pad(Encode(id), minLength)
}
