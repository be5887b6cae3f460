package oscrypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasbyte1/go-passlib-utils/oscrypt"
)

func TestCrypt(t *testing.T) {
	if !oscrypt.Available() {
		_, err := oscrypt.Crypt([]byte("test"), "ab")
		assert.ErrorIs(t, err, oscrypt.ErrUnavailable)
		t.Skip("crypt(3) not compiled in; build with -tags oscrypt")
	}

	got, err := oscrypt.Crypt([]byte("test"), "ab")
	require.NoError(t, err)
	assert.Equal(t, "abgOeLfPimXQo", got)

	got, err = oscrypt.Crypt([]byte("test"), "$1$test$")
	require.NoError(t, err)
	assert.Equal(t, "$1$test$pi/xDtU5WFVRqYS6BMU8X/", got)

	_, err = oscrypt.Crypt([]byte("a\x00b"), "ab")
	assert.ErrorIs(t, err, oscrypt.ErrNullByte)
}
