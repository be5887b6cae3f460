package h64_test

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasbyte1/go-passlib-utils/h64"
)

func TestEncodeKnownValues(t *testing.T) {
	cases := map[string]string{
		"abc":          "V7qM",
		"\x01":         "/.",
		"\xff\xff\xff": "zzzz",
		"ab":           "V74",
		"hello world!": "cJ4Pgx46rxaQgFK6",
	}
	for in, want := range cases {
		assert.Equal(t, want, h64.Encode([]byte(in)), "input %q", in)
	}
}

func TestEncodedLen(t *testing.T) {
	assert.Equal(t, 22, h64.EncodedLen(16))
	assert.Equal(t, 16, h64.EncodedLen(12))
	assert.Equal(t, 2, h64.EncodedLen(1))
	for n := 0; n < 20; n++ {
		assert.Len(t, h64.Encode(make([]byte, n)), h64.EncodedLen(n))
	}
}

func TestEncodeTransposed(t *testing.T) {
	sum := md5.Sum([]byte("x"))
	offsets := []int{12, 6, 0, 13, 7, 1, 14, 8, 2, 15, 9, 3, 5, 10, 4, 11}
	assert.Equal(t, "J.MbQF1pbJDtaWQMAOZ7C/", h64.EncodeTransposed(sum[:], offsets))
}

func TestDecodeInvertsEncode(t *testing.T) {
	src := []byte("The quick brown fox jumps")
	for n := 0; n <= len(src); n++ {
		got, err := h64.Decode(h64.Encode(src[:n]))
		require.NoError(t, err)
		assert.Equal(t, src[:n], got, "length %d", n)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := h64.Decode("abcde")
	assert.ErrorIs(t, err, h64.ErrInvalidLength)

	_, err = h64.Decode("ab$d")
	assert.ErrorIs(t, err, h64.ErrInvalidChar)
}

func TestValid(t *testing.T) {
	assert.True(t, h64.Valid("./09AZaz"))
	assert.True(t, h64.Valid(""))
	assert.False(t, h64.Valid("abc$"))
	assert.False(t, h64.ValidIn("abc", "ab"))
	assert.Equal(t, 63, h64.Index('z'))
	assert.Equal(t, -1, h64.Index('-'))
}

func TestBcryptEncoding(t *testing.T) {
	salt := make([]byte, 16)
	assert.Equal(t, "......................", h64.BcryptEncoding.EncodeToString(salt))
	raw, err := h64.BcryptEncoding.DecodeString("......................")
	require.NoError(t, err)
	assert.Equal(t, salt, raw)
}
