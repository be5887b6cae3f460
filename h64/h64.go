// Package h64 implements the "hash64" encoding used by legacy crypt(3)
// formats: a base64 variant over the alphabet ./0-9A-Za-z that packs bytes
// little-endian in groups of three and emits no padding.
//
// Encoding is delegated to github.com/GehirnInc/crypt/common so that
// checksums produced here are byte-identical to the ones produced by the
// GehirnInc crypters.  The package adds decoding, transposed encoding (the
// byte reordering MD5-crypt applies before encoding) and the bcrypt flavour of
// the alphabet.
package h64

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt/common"
)

const (
	// Alphabet is the hash64 character set in value order.
	Alphabet = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// BcryptAlphabet is the character set used by bcrypt salts and checksums.
	// It differs from [Alphabet] in the placement of the digits.
	BcryptAlphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrInvalidChar is returned when input contains a character outside the
	// alphabet.
	ErrInvalidChar = errors.New("h64: invalid character")

	// ErrInvalidLength is returned when the input length cannot correspond to
	// a whole number of bytes.
	ErrInvalidLength = errors.New("h64: invalid encoded length")
)

// BcryptEncoding is the big-endian, unpadded base64 flavour used by bcrypt.
var BcryptEncoding = base64.NewEncoding(BcryptAlphabet).WithPadding(base64.NoPadding)

// EncodedLen returns the number of characters [Encode] produces for n bytes.
func EncodedLen(n int) int { return (n*8 + 5) / 6 }

// Encode returns the hash64 encoding of src.
func Encode(src []byte) string {
	return string(common.Base64_24Bit(src))
}

// EncodeTransposed reorders src by offsets (out[i] = src[offsets[i]]) and
// encodes the result.  It panics if an offset is out of range.
func EncodeTransposed(src []byte, offsets []int) string {
	buf := make([]byte, len(offsets))
	for i, off := range offsets {
		buf[i] = src[off]
	}
	return Encode(buf)
}

// Decode reverses [Encode].  Unused high bits in a trailing partial group
// are ignored.
func Decode(s string) ([]byte, error) {
	if len(s)%4 == 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, len(s))
	}
	out := make([]byte, 0, len(s)*6/8)
	for i := 0; i < len(s); i += 4 {
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		var v uint
		for j := i; j < end; j++ {
			idx := Index(s[j])
			if idx < 0 {
				return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidChar, s[j], j)
			}
			v |= uint(idx) << (6 * uint(j-i))
		}
		for k := 0; k < end-i-1; k++ {
			out = append(out, byte(v>>(8*uint(k))))
		}
	}
	return out, nil
}

// Index returns the value of c in [Alphabet], or -1.
func Index(c byte) int {
	return strings.IndexByte(Alphabet, c)
}

// Valid reports whether every character of s is in [Alphabet].
func Valid(s string) bool {
	return ValidIn(s, Alphabet)
}

// ValidIn reports whether every character of s is in charset.
func ValidIn(s, charset string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(charset, s[i]) < 0 {
			return false
		}
	}
	return true
}
