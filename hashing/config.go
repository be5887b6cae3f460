package hashing

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the environment variable prefix read by
// [LoadConfigFromEnv] when none is given.
const DefaultEnvPrefix = "PASSLIB"

// Config is a hashing policy: which schemes a [Manager] recognises, which
// one produces new hashes, and per-scheme settings.
//
//	default: argon2
//	schemes: [argon2, bcrypt, md5_crypt]
//	settings:
//	  bcrypt:
//	    rounds: 13
//	    ident: 2b
//	  argon2:
//	    memory_cost: 19456
//	    time_cost: 2
//	log_level: info
type Config struct {
	// Default is the scheme used for new hashes.
	Default string `yaml:"default" envconfig:"DEFAULT" default:"argon2"`

	// Schemes lists the recognised schemes in detection order.  Empty means
	// every built-in scheme.
	Schemes []string `yaml:"schemes" envconfig:"SCHEMES"`

	// Settings maps a scheme name to keyword settings, as accepted by
	// [OptionsFromMap].
	Settings map[string]map[string]any `yaml:"settings" ignored:"true"`

	// EnvSettings carries settings from the environment as
	// "scheme.keyword:value" pairs, e.g.
	// PASSLIB_SETTINGS="bcrypt.rounds:13,argon2.type:id".
	EnvSettings map[string]string `yaml:"-" envconfig:"SETTINGS"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads a YAML policy file.  Unset fields take their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadConfigString(string(data))
}

// LoadConfigString parses a YAML policy document.
func LoadConfigString(data string) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	defaults.SetDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConfigFromEnv reads the policy from environment variables named
// <prefix>_DEFAULT, <prefix>_SCHEMES, <prefix>_SETTINGS, <prefix>_LOG_LEVEL
// and <prefix>_LOG_FORMAT.  An empty prefix means [DefaultEnvPrefix].
func LoadConfigFromEnv(prefix string) (*Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	var c Config
	defaults.SetDefaults(&c)
	if err := envconfig.Process(prefix, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	for _, name := range append([]string{c.Default}, c.Schemes...) {
		if _, ok := builtinSchemes[SchemeName(name)]; !ok {
			return fmt.Errorf("%w: unknown scheme %q", ErrSchemeNotFound, name)
		}
	}
	for key := range c.EnvSettings {
		if name, kw, ok := strings.Cut(key, "."); !ok || name == "" || kw == "" {
			return fmt.Errorf("%w: setting %q must be written scheme.keyword", ErrInvalidOption, key)
		}
	}
	return nil
}

// SchemeSettings returns the merged keyword settings for name.  Environment
// settings override file settings.
func (c *Config) SchemeSettings(name SchemeName) map[string]any {
	out := map[string]any{}
	for k, v := range c.Settings[string(name)] {
		out[k] = v
	}
	for key, v := range c.EnvSettings {
		if scheme, kw, _ := strings.Cut(key, "."); scheme == string(name) {
			out[kw] = v
		}
	}
	return out
}

// NewManager builds a [Manager] implementing the policy.
func (c *Config) NewManager() (*Manager, error) {
	names := Schemes()
	if len(c.Schemes) > 0 {
		names = names[:0]
		for _, s := range c.Schemes {
			names = append(names, SchemeName(s))
		}
	}

	m := NewManager(SchemeName(c.Default))
	for _, name := range names {
		opts, err := OptionsFromMap(c.SchemeSettings(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		h, err := New(name, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := m.Register(name, h); err != nil {
			return nil, err
		}
	}
	if !m.Has(m.Default()) {
		return nil, fmt.Errorf("%w: default scheme %q is not in the scheme list", ErrSchemeNotFound, c.Default)
	}
	return m, nil
}

// ConfigureLogger applies the configured level and format to l.
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	l.SetLevel(level)
	switch c.LogFormat {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidOption, c.LogFormat)
	}
	return nil
}
