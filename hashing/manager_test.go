package hashing_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

const md5Vector = "$1$test$pi/xDtU5WFVRqYS6BMU8X/"

// newTestManager registers a fast argon2 default plus md5_crypt, oracle10
// and cisco_type7.
func newTestManager(t *testing.T) *hashing.Manager {
	t.Helper()
	m := hashing.NewManager(hashing.SchemeArgon2)
	require.NoError(t, m.Register(hashing.SchemeArgon2, newTestArgon2(t)))
	for _, name := range []hashing.SchemeName{hashing.SchemeMD5Crypt, hashing.SchemeOracle10, hashing.SchemeCiscoType7} {
		require.NoError(t, m.Register(name, mustNew(t, name)))
	}
	return m
}

func TestManager_Register(t *testing.T) {
	m := hashing.NewManager(hashing.SchemeMD5Crypt)

	assert.ErrorIs(t, m.Register("", mustNew(t, hashing.SchemeMD5Crypt)), hashing.ErrEmptySchemeName)
	assert.ErrorIs(t, m.Register(hashing.SchemeMD5Crypt, nil), hashing.ErrNilScheme)

	require.NoError(t, m.Register(hashing.SchemeMD5Crypt, mustNew(t, hashing.SchemeMD5Crypt)))
	require.NoError(t, m.Register(hashing.SchemeOracle10, mustNew(t, hashing.SchemeOracle10)))
	require.NoError(t, m.Register(hashing.SchemeMD5Crypt, mustNew(t, hashing.SchemeMD5Crypt, hashing.WithSaltSize(4))))

	assert.Equal(t, []hashing.SchemeName{hashing.SchemeMD5Crypt, hashing.SchemeOracle10}, m.SchemeNames())
	assert.True(t, m.Has(hashing.SchemeOracle10))
	assert.False(t, m.Has(hashing.SchemeBcrypt))

	s, err := m.Handler(hashing.SchemeMD5Crypt)
	require.NoError(t, err)
	hash, err := s.Hash("pw")
	require.NoError(t, err)
	assert.Len(t, hash, len("$1$abcd$")+22, "the replacement handler should be in use")

	_, err = m.Handler(hashing.SchemeBcrypt)
	assert.ErrorIs(t, err, hashing.ErrSchemeNotFound)
}

func TestManager_SetDefault(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, hashing.SchemeArgon2, m.Default())

	assert.ErrorIs(t, m.SetDefault(hashing.SchemeBcrypt), hashing.ErrSchemeNotFound)
	require.NoError(t, m.SetDefault(hashing.SchemeMD5Crypt))
	assert.Equal(t, hashing.SchemeMD5Crypt, m.Default())

	hash, err := m.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$1$"))
}

func TestManager_UnregisteredDefault(t *testing.T) {
	m := hashing.NewManager(hashing.SchemeBcrypt)
	require.NoError(t, m.Register(hashing.SchemeMD5Crypt, mustNew(t, hashing.SchemeMD5Crypt)))
	_, err := m.Hash("secret")
	assert.ErrorIs(t, err, hashing.ErrSchemeNotFound)
}

func TestManager_Identify(t *testing.T) {
	m := newTestManager(t)
	tests := map[string]hashing.SchemeName{
		argon2idVector:     hashing.SchemeArgon2,
		md5Vector:          hashing.SchemeMD5Crypt,
		"F894844C34402B67": hashing.SchemeOracle10,
		"045802150C2E":     hashing.SchemeCiscoType7,
	}
	for hash, want := range tests {
		got, ok := m.Identify(hash)
		assert.True(t, ok, hash)
		assert.Equal(t, want, got, hash)
	}

	_, ok := m.Identify("$2b$12$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga")
	assert.False(t, ok, "bcrypt is not registered")
}

func TestManager_IdentifyUsesRegistrationOrder(t *testing.T) {
	// A 16-character upper-case hex string is a valid oracle10 hash and a
	// valid PIX hash.
	const hash = "0123456789ABCDEF"

	a := hashing.NewManager(hashing.SchemeCiscoPIX)
	require.NoError(t, a.Register(hashing.SchemeCiscoPIX, mustNew(t, hashing.SchemeCiscoPIX)))
	require.NoError(t, a.Register(hashing.SchemeOracle10, mustNew(t, hashing.SchemeOracle10)))
	got, _ := a.Identify(hash)
	assert.Equal(t, hashing.SchemeCiscoPIX, got)

	b := hashing.NewManager(hashing.SchemeOracle10)
	require.NoError(t, b.Register(hashing.SchemeOracle10, mustNew(t, hashing.SchemeOracle10)))
	require.NoError(t, b.Register(hashing.SchemeCiscoPIX, mustNew(t, hashing.SchemeCiscoPIX)))
	got, _ = b.Identify(hash)
	assert.Equal(t, hashing.SchemeOracle10, got)
}

func TestManager_Verify(t *testing.T) {
	m := newTestManager(t)

	cases := []struct {
		secret, user, hash string
		want               bool
	}{
		{"password", "", argon2idVector, true},
		{"wrong", "", argon2idVector, false},
		{"test", "", md5Vector, true},
		{"tiger", "scott", "F894844C34402B67", true},
		{"tiger", "system", "F894844C34402B67", false},
		{"cisco", "", "045802150C2E", true},
	}
	for _, c := range cases {
		ok, err := m.Verify(c.secret, c.hash, hashing.WithUser(c.user))
		require.NoError(t, err, c.hash)
		assert.Equal(t, c.want, ok, "%s / %s", c.secret, c.hash)
	}

	_, err := m.Verify("x", "not-a-hash")
	assert.ErrorIs(t, err, hashing.ErrFormat)
}

func TestManager_VerifyWith(t *testing.T) {
	m := newTestManager(t)

	ok, err := m.VerifyWith(hashing.SchemeMD5Crypt, "test", md5Vector)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = m.VerifyWith(hashing.SchemeOracle10, "test", md5Vector)
	assert.ErrorIs(t, err, hashing.ErrAlgorithmMismatch)

	_, err = m.VerifyWith(hashing.SchemeBcrypt, "test", md5Vector)
	assert.ErrorIs(t, err, hashing.ErrSchemeNotFound)
}

func TestManager_VerifyAndUpdate(t *testing.T) {
	m := newTestManager(t)

	ok, newHash, err := m.VerifyAndUpdate("test", md5Vector)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, newHash, "an md5_crypt hash should be upgraded to the default")
	assert.True(t, strings.HasPrefix(newHash, "$argon2id$"))

	ok, err = m.Verify("test", newHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, again, err := m.VerifyAndUpdate("test", newHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, again, "a fresh default hash needs no update")

	ok, newHash, err = m.VerifyAndUpdate("wrong", md5Vector)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)
}

func TestManager_NeedsUpdate(t *testing.T) {
	m := newTestManager(t)

	needs, err := m.NeedsUpdate(md5Vector)
	require.NoError(t, err)
	assert.True(t, needs)

	fresh, err := m.Hash("secret")
	require.NoError(t, err)
	needs, err = m.NeedsUpdate(fresh)
	require.NoError(t, err)
	assert.False(t, needs)

	weak, err := hashing.New(hashing.SchemeArgon2, hashing.WithMemoryCost(32), hashing.WithTimeCost(1), hashing.WithParallelism(1))
	require.NoError(t, err)
	old, err := weak.Hash("secret")
	require.NoError(t, err)
	needs, err = m.NeedsUpdate(old)
	require.NoError(t, err)
	assert.True(t, needs, "a weaker argon2 hash should be upgraded")

	_, err = m.NeedsUpdate("not-a-hash")
	assert.ErrorIs(t, err, hashing.ErrFormat)
}

func TestManager_Info(t *testing.T) {
	m := newTestManager(t)

	info, err := m.Info(md5Vector)
	require.NoError(t, err)
	assert.Equal(t, hashing.SchemeMD5Crypt, info.Scheme)
	assert.Equal(t, "test", info.Params["salt"])

	_, err = m.Info("not-a-hash")
	assert.ErrorIs(t, err, hashing.ErrFormat)
}

func TestNewDefaultManager(t *testing.T) {
	m, err := hashing.NewDefaultManager()
	require.NoError(t, err)
	assert.Equal(t, hashing.SchemeArgon2, m.Default())
	assert.Equal(t, hashing.Schemes(), m.SchemeNames())

	for hash, want := range map[string]hashing.SchemeName{
		"!":                                hashing.SchemeDjangoDisabled,
		"crypt$ab$abJnggxhB/yWI":           hashing.SchemeDjangoDESCrypt,
		"2KFQnbNIdI.2KYOU":                 hashing.SchemeCiscoPIX,
		"$apr1$xyz$NU.niW1.aK5j0LYFfMca4/": hashing.SchemeAprMD5Crypt,
	} {
		got, ok := m.Identify(hash)
		assert.True(t, ok, hash)
		assert.Equal(t, want, got, hash)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := newTestManager(t)
	type7 := mustNew(t, hashing.SchemeCiscoType7)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ok, err := m.Verify("test", md5Vector)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Register(hashing.SchemeCiscoType7, type7))
			_ = m.SchemeNames()
		}()
	}
	wg.Wait()
}
