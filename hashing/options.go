package hashing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Option configures a handler variant.  Options are applied by [New] and
// [Handler.Using]; the handler they are applied to is never modified.
//
// Several settings have aliases that follow other ecosystems' naming
// (time_cost for rounds, salt_len for salt_size, hash_len and digest_size
// for checksum_size).  Supplying two spellings of the same setting in one
// call fails with [ErrInvalidOption].
type Option func(*settings)

// settings collects option values keyed by their canonical name.
type settings struct {
	keywords map[string]string
	values   map[string]any
	err      error
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{keywords: map[string]string{}, values: map[string]any{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, s.err
}

func (s *settings) set(keyword, canonical string, v any) {
	if s.err != nil {
		return
	}
	if prev, ok := s.keywords[canonical]; ok && prev != keyword {
		s.err = fmt.Errorf("%w: %q and %q are mutually exclusive", ErrInvalidOption, prev, keyword)
		return
	}
	s.keywords[canonical] = keyword
	s.values[canonical] = v
}

func (s *settings) has(canonical string) bool {
	_, ok := s.values[canonical]
	return ok
}

func (s *settings) getInt(canonical string) int {
	v, _ := s.values[canonical].(int)
	return v
}

func (s *settings) getString(canonical string) string {
	v, _ := s.values[canonical].(string)
	return v
}

func (s *settings) getBool(canonical string) bool {
	v, _ := s.values[canonical].(bool)
	return v
}

// WithSalt fixes the salt used by every hash the variant produces.  It is
// intended for testing and interoperability; production code should let
// the handler generate salts.
func WithSalt(salt string) Option {
	return func(s *settings) { s.set("salt", "salt", []byte(salt)) }
}

// WithRawSalt is [WithSalt] for schemes with binary salts (argon2).
func WithRawSalt(salt []byte) Option {
	return func(s *settings) { s.set("salt", "salt", cloneBytes(salt)) }
}

// WithSaltInt fixes the integer salt of Cisco type 7.
func WithSaltInt(offset int) Option {
	return func(s *settings) { s.set("salt", "salt", offset) }
}

// WithSaltSize sets the size of generated salts.
func WithSaltSize(n int) Option {
	return func(s *settings) { s.set("salt_size", "salt_size", n) }
}

// WithSaltLen is an alias of [WithSaltSize].
func WithSaltLen(n int) Option {
	return func(s *settings) { s.set("salt_len", "salt_size", n) }
}

// WithRounds sets the default cost.
func WithRounds(n int) Option {
	return func(s *settings) { s.set("rounds", "rounds", n) }
}

// WithTimeCost is an alias of [WithRounds].
func WithTimeCost(n int) Option {
	return func(s *settings) { s.set("time_cost", "rounds", n) }
}

// WithIdent selects the identifier prefix, e.g. "2a" or "$2b$" for bcrypt.
func WithIdent(ident string) Option {
	return func(s *settings) { s.set("ident", "ident", ident) }
}

// WithMemoryCost sets the argon2 memory cost in KiB.
func WithMemoryCost(kib int) Option {
	return func(s *settings) { s.set("memory_cost", "memory_cost", kib) }
}

// WithParallelism sets the argon2 lane count.
func WithParallelism(n int) Option {
	return func(s *settings) { s.set("parallelism", "parallelism", n) }
}

// WithChecksumSize sets the argon2 digest length in bytes.
func WithChecksumSize(n int) Option {
	return func(s *settings) { s.set("checksum_size", "checksum_size", n) }
}

// WithDigestSize is an alias of [WithChecksumSize].
func WithDigestSize(n int) Option {
	return func(s *settings) { s.set("digest_size", "checksum_size", n) }
}

// WithHashLen is an alias of [WithChecksumSize].
func WithHashLen(n int) Option {
	return func(s *settings) { s.set("hash_len", "checksum_size", n) }
}

// WithType selects the argon2 variant: "i", "d" or "id".
func WithType(t string) Option {
	return func(s *settings) { s.set("type", "type", t) }
}

// WithMaxThreads caps the number of threads argon2 hashing may use.
// -1 means unlimited.
func WithMaxThreads(n int) Option {
	return func(s *settings) { s.set("max_threads", "max_threads", n) }
}

// WithRelaxed downgrades out-of-range settings from errors to corrections,
// reported through [Handler.Corrections] and the package logger.
func WithRelaxed(relaxed bool) Option {
	return func(s *settings) { s.set("relaxed", "relaxed", relaxed) }
}

// WithEncoding selects the byte encoding applied to secrets before hashing.
// The name is resolved with the WHATWG encoding index ("utf-8", "latin1",
// "windows-1252", ...).  The default is UTF-8.
func WithEncoding(name string) Option {
	return func(s *settings) { s.set("encoding", "encoding", name) }
}

// WithTruncateError makes bcrypt reject secrets longer than 72 bytes at hash
// time instead of silently truncating them.
func WithTruncateError(enabled bool) Option {
	return func(s *settings) { s.set("truncate_error", "truncate_error", enabled) }
}

// OptionsFromMap converts keyword settings, as found in configuration files,
// into options.  Integer settings accept ints, whole floats and numeric
// strings; boolean settings accept bools and strconv.ParseBool strings.
func OptionsFromMap(m map[string]any) ([]Option, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]Option, 0, len(m))
	for _, k := range keys {
		v := m[k]
		var opt Option
		var err error
		switch k {
		case "salt":
			switch sv := v.(type) {
			case string:
				opt = WithSalt(sv)
			case []byte:
				opt = WithRawSalt(sv)
			default:
				var n int
				n, err = toInt(k, v)
				opt = WithSaltInt(n)
			}
		case "ident":
			opt, err = stringOption(k, v, WithIdent)
		case "type":
			opt, err = stringOption(k, v, WithType)
		case "encoding":
			opt, err = stringOption(k, v, WithEncoding)
		case "relaxed":
			opt, err = boolOption(k, v, WithRelaxed)
		case "truncate_error":
			opt, err = boolOption(k, v, WithTruncateError)
		default:
			ctor, ok := intOptions[k]
			if !ok {
				return nil, fmt.Errorf("%w: unknown setting %q", ErrInvalidOption, k)
			}
			opt, err = intOption(k, v, ctor)
		}
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

var intOptions = map[string]func(int) Option{
	"salt_size":     WithSaltSize,
	"salt_len":      WithSaltLen,
	"rounds":        WithRounds,
	"time_cost":     WithTimeCost,
	"memory_cost":   WithMemoryCost,
	"parallelism":   WithParallelism,
	"checksum_size": WithChecksumSize,
	"digest_size":   WithDigestSize,
	"hash_len":      WithHashLen,
	"max_threads":   WithMaxThreads,
}

func intOption(k string, v any, ctor func(int) Option) (Option, error) {
	n, err := toInt(k, v)
	if err != nil {
		return nil, err
	}
	return ctor(n), nil
}

func stringOption(k string, v any, ctor func(string) Option) (Option, error) {
	sv, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOption, k, v)
	}
	return ctor(sv), nil
}

func boolOption(k string, v any, ctor func(bool) Option) (Option, error) {
	switch bv := v.(type) {
	case bool:
		return ctor(bv), nil
	case string:
		b, err := strconv.ParseBool(bv)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOption, k, err)
		}
		return ctor(b), nil
	}
	return nil, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidOption, k, v)
}

func toInt(k string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidOption, k, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidOption, k, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidOption, k, v)
}

// CallOption supplies per-call context to Hash and Verify.
type CallOption func(*callContext)

type callContext struct {
	user string
}

// WithUser supplies the username that Cisco PIX/ASA and Oracle 10g mix into
// the hash.  Other schemes ignore it.
func WithUser(user string) CallOption {
	return func(c *callContext) { c.user = user }
}

func newCallContext(opts []CallOption) callContext {
	var c callContext
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
