package hashing_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

const testPolicy = `
default: bcrypt
schemes: [bcrypt, md5_crypt, oracle10]
settings:
  bcrypt:
    rounds: 5
  md5_crypt:
    salt_size: 4
log_level: debug
log_format: json
`

func TestLoadConfigString_Defaults(t *testing.T) {
	c, err := hashing.LoadConfigString("")
	require.NoError(t, err)
	assert.Equal(t, "argon2", c.Default)
	assert.Empty(t, c.Schemes)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoadConfigString_Policy(t *testing.T) {
	c, err := hashing.LoadConfigString(testPolicy)
	require.NoError(t, err)
	assert.Equal(t, "bcrypt", c.Default)
	assert.Equal(t, []string{"bcrypt", "md5_crypt", "oracle10"}, c.Schemes)
	assert.Equal(t, map[string]any{"rounds": 5}, c.SchemeSettings(hashing.SchemeBcrypt))
	assert.Empty(t, c.SchemeSettings(hashing.SchemeOracle10))
}

func TestLoadConfigString_Errors(t *testing.T) {
	tests := map[string]struct {
		doc  string
		want error
	}{
		"bad yaml":        {"default: [", hashing.ErrInvalidOption},
		"unknown default": {"default: sha512_crypt", hashing.ErrSchemeNotFound},
		"unknown scheme":  {"schemes: [md5_crypt, nope]", hashing.ErrSchemeNotFound},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := hashing.LoadConfigString(tt.doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPolicy), 0o600))

	c, err := hashing.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bcrypt", c.Default)

	_, err = hashing.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PASSLIB_TEST_DEFAULT", "md5_crypt")
	t.Setenv("PASSLIB_TEST_SCHEMES", "md5_crypt,bcrypt")
	t.Setenv("PASSLIB_TEST_SETTINGS", "bcrypt.rounds:5,md5_crypt.salt_size:6")
	t.Setenv("PASSLIB_TEST_LOG_LEVEL", "warn")

	c, err := hashing.LoadConfigFromEnv("PASSLIB_TEST")
	require.NoError(t, err)
	assert.Equal(t, "md5_crypt", c.Default)
	assert.Equal(t, []string{"md5_crypt", "bcrypt"}, c.Schemes)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, map[string]any{"rounds": "5"}, c.SchemeSettings(hashing.SchemeBcrypt))

	m, err := c.NewManager()
	require.NoError(t, err)
	hash, err := m.Hash("secret")
	require.NoError(t, err)
	assert.Len(t, hash, len("$1$abcdef$")+22)

	b, err := m.Handler(hashing.SchemeBcrypt)
	require.NoError(t, err)
	hash, err = b.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$05$"), hash)
}

func TestLoadConfigFromEnv_Errors(t *testing.T) {
	t.Setenv("PASSLIB_BAD_SETTINGS", "rounds:5")
	_, err := hashing.LoadConfigFromEnv("PASSLIB_BAD")
	assert.ErrorIs(t, err, hashing.ErrInvalidOption)

	t.Setenv("PASSLIB_UNKNOWN_DEFAULT", "plaintext")
	_, err = hashing.LoadConfigFromEnv("PASSLIB_UNKNOWN")
	assert.ErrorIs(t, err, hashing.ErrSchemeNotFound)
}

func TestConfig_EnvSettingsOverrideFile(t *testing.T) {
	c, err := hashing.LoadConfigString(testPolicy)
	require.NoError(t, err)
	c.EnvSettings = map[string]string{"bcrypt.rounds": "6", "bcrypt.ident": "2b"}

	assert.Equal(t, map[string]any{"rounds": "6", "ident": "2b"}, c.SchemeSettings(hashing.SchemeBcrypt))
}

func TestConfig_NewManager(t *testing.T) {
	c, err := hashing.LoadConfigString(testPolicy)
	require.NoError(t, err)

	m, err := c.NewManager()
	require.NoError(t, err)
	assert.Equal(t, hashing.SchemeBcrypt, m.Default())
	assert.Equal(t, []hashing.SchemeName{hashing.SchemeBcrypt, hashing.SchemeMD5Crypt, hashing.SchemeOracle10}, m.SchemeNames())

	hash, err := m.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$05$"), hash)

	ok, newHash, err := m.VerifyAndUpdate("test", "$1$test$pi/xDtU5WFVRqYS6BMU8X/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(newHash, "$2a$05$"), newHash)
}

func TestConfig_NewManagerErrors(t *testing.T) {
	c, err := hashing.LoadConfigString("default: bcrypt\nschemes: [md5_crypt]\n")
	require.NoError(t, err)
	_, err = c.NewManager()
	assert.ErrorIs(t, err, hashing.ErrSchemeNotFound)

	c, err = hashing.LoadConfigString("settings:\n  bcrypt:\n    rounds: 99\n")
	require.NoError(t, err)
	_, err = c.NewManager()
	assert.ErrorIs(t, err, hashing.ErrParameterRange)

	c, err = hashing.LoadConfigString("settings:\n  oracle10:\n    salt_size: 4\n")
	require.NoError(t, err)
	_, err = c.NewManager()
	assert.ErrorIs(t, err, hashing.ErrInvalidOption)
}

func TestConfig_ConfigureLogger(t *testing.T) {
	c, err := hashing.LoadConfigString(testPolicy)
	require.NoError(t, err)

	l := logrus.New()
	require.NoError(t, c.ConfigureLogger(l))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	c.LogFormat = "text"
	require.NoError(t, c.ConfigureLogger(l))
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	c.LogFormat = "xml"
	assert.ErrorIs(t, c.ConfigureLogger(l), hashing.ErrInvalidOption)

	c.LogFormat = "text"
	c.LogLevel = "chatty"
	assert.ErrorIs(t, c.ConfigureLogger(l), hashing.ErrInvalidOption)
}
