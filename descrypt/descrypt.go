// Package descrypt implements the traditional Unix DES-based crypt(3)
// construction: 25 chained DES encryptions of a zero block under a key taken
// from the first eight password bytes, with the E-box perturbed by a 12-bit
// salt.
//
// It exists as the portable engine for schemes wrapping des_crypt when the
// platform crypt(3) is unavailable.  The DES rounds are written out at the
// bit level because the salt perturbation of the expansion table cannot be
// expressed through crypto/des.
package descrypt

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Alphabet is the hash64 alphabet used for both salt and checksum.
	Alphabet = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// SaltSize is the number of salt characters.
	SaltSize = 2

	// ChecksumSize is the number of checksum characters following the salt.
	ChecksumSize = 11

	// HashSize is the length of a full crypt(3) result.
	HashSize = SaltSize + ChecksumSize

	// MaxKeySize is the number of password bytes that influence the result.
	MaxKeySize = 8

	rounds = 25
)

var (
	// ErrInvalidSalt is returned for salts that are not two hash64 characters.
	ErrInvalidSalt = errors.New("descrypt: salt must be 2 characters from ./0-9A-Za-z")

	// ErrNullByte is returned when the key contains a NUL byte, which the C
	// implementation would silently treat as the end of the password.
	ErrNullByte = errors.New("descrypt: key must not contain NUL bytes")
)

// Crypt returns the 13-character crypt(3) string for key under salt.
// Only the first [MaxKeySize] bytes of key are used, and only the low seven
// bits of each of those bytes.
func Crypt(key []byte, salt string) (string, error) {
	if len(salt) != SaltSize {
		return "", fmt.Errorf("%w: got %q", ErrInvalidSalt, salt)
	}
	s0 := strings.IndexByte(Alphabet, salt[0])
	s1 := strings.IndexByte(Alphabet, salt[1])
	if s0 < 0 || s1 < 0 {
		return "", fmt.Errorf("%w: got %q", ErrInvalidSalt, salt)
	}
	if strings.IndexByte(string(key), 0) >= 0 {
		return "", ErrNullByte
	}

	var k uint64
	for i := 0; i < MaxKeySize; i++ {
		var c byte
		if i < len(key) {
			c = key[i]
		}
		k = k<<8 | uint64(c<<1)
	}
	subkeys := keySchedule(k)
	expand := saltedExpansion(s0 | s1<<6)

	var block uint64
	for i := 0; i < rounds; i++ {
		block = encryptBlock(block, &subkeys, &expand)
	}

	var out strings.Builder
	out.Grow(HashSize)
	out.WriteString(salt)
	for i := 0; i < ChecksumSize-1; i++ {
		out.WriteByte(Alphabet[(block>>(58-6*uint(i)))&0x3f])
	}
	// The last group carries the final four bits padded with two zero bits.
	out.WriteByte(Alphabet[(block<<2)&0x3f])
	return out.String(), nil
}

// saltedExpansion returns the expansion table with entry i swapped with
// entry i+24 for every set bit i of the 12-bit salt.
func saltedExpansion(salt int) [48]byte {
	e := expansion
	for i := 0; i < 12; i++ {
		if salt>>uint(i)&1 == 1 {
			e[i], e[i+24] = e[i+24], e[i]
		}
	}
	return e
}

// permute gathers the 1-based bit positions listed in table from an n-bit
// input whose bit 1 is the most significant.
func permute(in uint64, table []byte, n uint) uint64 {
	var out uint64
	for _, pos := range table {
		out = out<<1 | (in>>(n-uint(pos)))&1
	}
	return out
}

func keySchedule(key uint64) [16]uint64 {
	var subkeys [16]uint64
	cd := permute(key, permutedChoice1[:], 64)
	c, d := uint32(cd>>28)&0x0fffffff, uint32(cd)&0x0fffffff
	for i, shift := range keyShifts {
		c = (c<<shift | c>>(28-shift)) & 0x0fffffff
		d = (d<<shift | d>>(28-shift)) & 0x0fffffff
		subkeys[i] = permute(uint64(c)<<28|uint64(d), permutedChoice2[:], 56)
	}
	return subkeys
}

func encryptBlock(block uint64, subkeys *[16]uint64, expand *[48]byte) uint64 {
	b := permute(block, initialPermutation[:], 64)
	l, r := b>>32, b&0xffffffff
	for i := 0; i < 16; i++ {
		l, r = r, l^feistel(r, subkeys[i], expand)
	}
	return permute(r<<32|l, finalPermutation[:], 64)
}

func feistel(r, subkey uint64, expand *[48]byte) uint64 {
	x := permute(r, expand[:], 32) ^ subkey
	var out uint64
	for i := 0; i < 8; i++ {
		six := (x >> (42 - 6*uint(i))) & 0x3f
		row := (six>>4)&2 | six&1
		col := (six >> 1) & 0x0f
		out = out<<4 | uint64(sBoxes[i][row*16+col])
	}
	return permute(out, roundPermutation[:], 32)
}
