package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Descriptor is the immutable metadata of a handler variant: which settings
// it accepts, their bounds, and the defaults used by [Handler.Hash].
//
// A Descriptor is produced once per variant by [New] or [Handler.Using] and
// never modified afterwards.
type Descriptor struct {
	Name SchemeName

	// Settings lists the canonical option names the scheme accepts in
	// addition to "relaxed" and "encoding".
	Settings []string

	// Ident is the default identifier; Idents lists every recognised one.
	Ident  string
	Idents []string

	// SaltChars is the salt alphabet; empty means raw bytes.
	SaltChars       string
	MinSaltSize     int
	MaxSaltSize     int // -1 means unbounded
	DefaultSaltSize int
	// Salt, when non-nil, is used instead of a generated salt.
	Salt []byte
	// IntSalt marks schemes whose salt is an integer (Cisco type 7).
	// SaltOffset, when non-negative, fixes that salt.
	IntSalt    bool
	SaltOffset int

	MinRounds     int
	MaxRounds     int // -1 means unbounded
	DefaultRounds int
	RoundsCost    CostKind

	ChecksumSize int

	// TruncateSize is the number of secret bytes the algorithm consumes;
	// zero means all of them.
	TruncateSize  int
	TruncateError bool

	// Argon2 defaults.
	Types       []string
	Type        string
	MemoryCost  int
	Parallelism int
	MaxThreads  int

	Relaxed  bool
	Encoding string
}

func (d Descriptor) clone() Descriptor {
	d.Settings = slices.Clone(d.Settings)
	d.Idents = slices.Clone(d.Idents)
	d.Types = slices.Clone(d.Types)
	d.Salt = cloneBytes(d.Salt)
	return d
}

func (d *Descriptor) accepts(setting string) bool {
	return setting == "relaxed" || setting == "encoding" || slices.Contains(d.Settings, setting)
}

// normIdent resolves ident, which may be given with or without the
// surrounding "$" characters, to one of d.Idents.
func (d *Descriptor) normIdent(ident string) (string, error) {
	if slices.Contains(d.Idents, ident) {
		return ident, nil
	}
	if alt := "$" + strings.Trim(ident, "$") + "$"; slices.Contains(d.Idents, alt) {
		return alt, nil
	}
	return "", fmt.Errorf("%w: %s does not recognise ident %q", ErrInvalidOption, d.Name, ident)
}

// scheme is the per-algorithm part of a handler: its grammar, defaults,
// parameter generation and the backend that computes its checksum.
type scheme interface {
	descriptor() Descriptor
	identify(hash string) bool
	parse(hash string) (*ParameterSet, error)
	render(p *ParameterSet) string
	// generate returns a configuration-only ParameterSet built from the
	// variant defaults and a fresh salt.
	generate(d *Descriptor) (*ParameterSet, error)
	// backend returns the resolver entry, or nil for schemes that never
	// compute a checksum.
	backend() *backend
}

// secretPreparer is implemented by schemes that build the engine input from
// the secret themselves instead of encoding it with the variant encoding.
type secretPreparer interface {
	prepare(d *Descriptor, secret string, p *ParameterSet, verifying bool) ([]byte, error)
}

// featureChecker is implemented by schemes whose parsed parameters may
// exceed what the resolved engine can compute.
type featureChecker interface {
	checkFeatures(p *ParameterSet, caps Capabilities) error
}

// updateChecker is implemented by schemes with tunable cost.
type updateChecker interface {
	needsUpdate(d *Descriptor, p *ParameterSet) (bool, error)
}

// variantValidator is implemented by schemes with cross-setting constraints.
type variantValidator interface {
	validate(d *Descriptor) error
}

// infoReporter is implemented by schemes that report more than the generic
// parameter set in [HashInfo].
type infoReporter interface {
	info(p *ParameterSet) map[string]any
}

// Handler is a password hash scheme bound to a set of defaults.
//
// Handlers are created with [New] and specialised with [Handler.Using].
// Every built-in scheme is served by this one type; the scheme-specific
// grammar and checksum engines are selected by name.
//
// # Thread safety
//
// Handler is immutable after construction and safe for concurrent use.
// Backend resolution is shared by every handler of the same scheme and
// happens at most once per process.
type Handler struct {
	desc        Descriptor
	impl        scheme
	corrections []Correction
}

var _ Scheme = (*Handler)(nil)

// Name returns the scheme implemented by this handler.
func (h *Handler) Name() SchemeName { return h.desc.Name }

// Descriptor returns a copy of the handler's metadata.
func (h *Handler) Descriptor() Descriptor { return h.desc.clone() }

// Corrections returns the adjustments the relaxed policy made while
// constructing this variant.
func (h *Handler) Corrections() []Correction {
	return slices.Clone(h.corrections)
}

// Identify reports whether hash matches the scheme's grammar.
func (h *Handler) Identify(hash string) bool { return h.impl.identify(hash) }

// Parse decodes hash into its parameters.  The configuration-only form
// (no checksum) is accepted where the grammar allows it.
func (h *Handler) Parse(hash string) (*ParameterSet, error) { return h.impl.parse(hash) }

// Render encodes p.  It is the inverse of [Handler.Parse].
func (h *Handler) Render(p *ParameterSet) string { return h.impl.render(p) }

// Using returns a new variant of h with opts applied on top of h's
// defaults.  h itself is unchanged.
//
//	fast, err := bcryptHandler.Using(hashing.WithRounds(4))
func (h *Handler) Using(opts ...Option) (*Handler, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	d := h.desc.clone()
	for setting := range s.values {
		if !d.accepts(setting) {
			return nil, fmt.Errorf("%w: %s does not accept %q", ErrInvalidOption, d.Name, s.keywords[setting])
		}
	}
	if s.has("relaxed") {
		d.Relaxed = s.getBool("relaxed")
	}
	pol := policy{relaxed: d.Relaxed}
	corrections := slices.Clone(h.corrections)
	note := func(c *Correction) {
		if c != nil {
			corrections = append(corrections, *c)
		}
	}

	if s.has("encoding") {
		name := s.getString("encoding")
		if _, err := lookupEncoding(name); err != nil {
			return nil, err
		}
		d.Encoding = name
	}
	if s.has("ident") {
		if d.Ident, err = d.normIdent(s.getString("ident")); err != nil {
			return nil, err
		}
	}
	if s.has("type") {
		t := strings.ToLower(s.getString("type"))
		if !slices.Contains(d.Types, t) {
			return nil, fmt.Errorf("%w: unknown %s type %q", ErrInvalidOption, d.Name, s.getString("type"))
		}
		d.Type = t
	}
	if s.has("salt_size") {
		n, c, err := pol.normInt(s.keywords["salt_size"], s.getInt("salt_size"), d.MinSaltSize, d.MaxSaltSize)
		if err != nil {
			return nil, err
		}
		note(c)
		d.DefaultSaltSize = n
	}
	if s.has("salt") {
		switch v := s.values["salt"].(type) {
		case []byte:
			if d.IntSalt {
				return nil, fmt.Errorf("%w: %s salt must be an integer", ErrInvalidOption, d.Name)
			}
			salt, c, err := pol.normSalt(&d, v)
			if err != nil {
				return nil, err
			}
			note(c)
			d.Salt = salt
		case int:
			if !d.IntSalt {
				return nil, fmt.Errorf("%w: %s salt must be a string", ErrInvalidOption, d.Name)
			}
			n, c, err := pol.normInt("salt", v, d.MinSaltSize, d.MaxSaltSize)
			if err != nil {
				return nil, err
			}
			note(c)
			d.SaltOffset = n
		}
	}
	if s.has("rounds") {
		n, c, err := pol.normInt(s.keywords["rounds"], s.getInt("rounds"), d.MinRounds, d.MaxRounds)
		if err != nil {
			return nil, err
		}
		note(c)
		d.DefaultRounds = n
	}
	if s.has("memory_cost") {
		n, c, err := pol.normInt("memory_cost", s.getInt("memory_cost"), argon2MinMemoryCost, -1)
		if err != nil {
			return nil, err
		}
		note(c)
		d.MemoryCost = n
	}
	if s.has("parallelism") {
		n, c, err := pol.normInt("parallelism", s.getInt("parallelism"), 1, argon2MaxParallelism)
		if err != nil {
			return nil, err
		}
		note(c)
		d.Parallelism = n
	}
	if s.has("checksum_size") {
		n, c, err := pol.normInt(s.keywords["checksum_size"], s.getInt("checksum_size"), argon2MinDigestSize, -1)
		if err != nil {
			return nil, err
		}
		note(c)
		d.ChecksumSize = n
	}
	if s.has("max_threads") {
		n := s.getInt("max_threads")
		if n < 1 && n != -1 {
			return nil, fmt.Errorf("%w: max_threads (%d) must be -1 (unlimited), or at least 1", ErrParameterRange, n)
		}
		d.MaxThreads = n
	}
	if s.has("truncate_error") {
		d.TruncateError = s.getBool("truncate_error")
	}
	if v, ok := h.impl.(variantValidator); ok {
		if err := v.validate(&d); err != nil {
			return nil, err
		}
	}

	for _, c := range corrections[len(h.corrections):] {
		log().WithField("scheme", d.Name).Warn("relaxed setting: " + c.String())
	}
	return &Handler{desc: d, impl: h.impl, corrections: corrections}, nil
}

// Genconfig returns a configuration-only hash string (no checksum) built
// from the variant defaults and a fresh salt.
func (h *Handler) Genconfig() (string, error) {
	p, err := h.impl.generate(&h.desc)
	if err != nil {
		return "", err
	}
	return h.impl.render(p), nil
}

// Hash hashes secret with a fresh salt and returns the encoded hash.
func (h *Handler) Hash(secret string, opts ...CallOption) (string, error) {
	if err := checkSecretSize(secret); err != nil {
		return "", err
	}
	p, err := h.impl.generate(&h.desc)
	if err != nil {
		return "", err
	}
	return h.finish(secret, p, opts)
}

// Genhash computes the hash of secret using the parameters of config,
// which may be a configuration-only string or a full hash.
func (h *Handler) Genhash(secret, config string, opts ...CallOption) (string, error) {
	if err := checkSecretSize(secret); err != nil {
		return "", err
	}
	p, err := h.impl.parse(config)
	if err != nil {
		return "", err
	}
	return h.finish(secret, p, opts)
}

func (h *Handler) finish(secret string, p *ParameterSet, opts []CallOption) (string, error) {
	if h.impl.backend() == nil {
		return h.impl.render(p), nil
	}
	p.User = newCallContext(opts).user
	sum, err := h.checksum(secret, p, false)
	if err != nil {
		return "", err
	}
	p.Checksum = sum
	return h.impl.render(p), nil
}

// Verify reports whether secret matches hash.
//
// A wrong secret yields (false, nil).  An error is returned only when the
// hash is malformed or has no checksum ([ErrFormat]), the secret exceeds
// [MaxSecretSize] ([ErrSizeLimit]), the engine cannot compute the hash
// ([ErrUnsupportedFeature]), or no engine is available
// ([ErrBackendUnavailable]).
func (h *Handler) Verify(secret, hash string, opts ...CallOption) (bool, error) {
	if err := checkSecretSize(secret); err != nil {
		return false, err
	}
	p, err := h.impl.parse(hash)
	if err != nil {
		return false, err
	}
	if h.impl.backend() == nil {
		return false, nil
	}
	defer verifyTimer(h.desc.Name)()
	if p.Checksum == nil {
		return false, fmt.Errorf("%w: %s hash has no checksum", ErrFormat, h.desc.Name)
	}
	p.User = newCallContext(opts).user
	sum, err := h.checksum(secret, p, true)
	if err != nil {
		return false, err
	}
	ok := subtle.ConstantTimeCompare(sum, p.Checksum) == 1
	wipe(sum)
	observeVerify(h.desc.Name, ok)
	return ok, nil
}

// NeedsUpdate reports whether hash was produced with parameters that differ
// from this variant's defaults in a way that warrants re-hashing.
func (h *Handler) NeedsUpdate(hash string) (bool, error) {
	p, err := h.impl.parse(hash)
	if err != nil {
		return false, err
	}
	if u, ok := h.impl.(updateChecker); ok {
		return u.needsUpdate(&h.desc, p)
	}
	return false, nil
}

// Info parses hash and returns its parameters.
func (h *Handler) Info(hash string) (HashInfo, error) {
	p, err := h.impl.parse(hash)
	if err != nil {
		return HashInfo{}, err
	}
	if r, ok := h.impl.(infoReporter); ok {
		return HashInfo{Scheme: h.desc.Name, Params: r.info(p)}, nil
	}
	params := map[string]any{}
	if p.Ident != "" {
		params["ident"] = p.Ident
	}
	if p.Salt != nil {
		params["salt"] = string(p.Salt)
	}
	if h.desc.IntSalt {
		params["salt"] = p.Offset
	}
	if h.desc.MaxRounds != 0 {
		params["rounds"] = p.Rounds
	}
	return HashInfo{Scheme: h.desc.Name, Params: params}, nil
}

// Backend resolves the scheme's checksum engine if necessary and returns
// its name.
func (h *Handler) Backend() (string, error) {
	b := h.impl.backend()
	if b == nil {
		return "none", nil
	}
	if _, _, err := b.resolve(); err != nil {
		return "", err
	}
	return b.current(), nil
}

// Backends lists the scheme's engines in preference order.
func (h *Handler) Backends() []string {
	b := h.impl.backend()
	if b == nil {
		return nil
	}
	return b.names()
}

// HasBackend reports whether the named engine builds and passes its
// self-test.  It does not change which engine is selected.
func (h *Handler) HasBackend(name string) bool {
	b := h.impl.backend()
	return b != nil && b.check(name) == nil
}

// SetBackend forces the named engine, which must pass its self-test.
// "any" discards the current choice and resolves again in preference order.
func (h *Handler) SetBackend(name string) error {
	b := h.impl.backend()
	if b == nil {
		return fmt.Errorf("%w: %s has no backends", ErrBackendUnavailable, h.desc.Name)
	}
	return b.force(name)
}

// ResetBackend returns the scheme's backend to the unresolved state.  It is
// intended for test isolation.
func (h *Handler) ResetBackend() {
	if b := h.impl.backend(); b != nil {
		b.reset()
	}
}

func (h *Handler) checksum(secret string, p *ParameterSet, verifying bool) ([]byte, error) {
	b := h.impl.backend()
	eng, caps, err := b.resolve()
	if err != nil {
		return nil, err
	}
	if fc, ok := h.impl.(featureChecker); ok {
		if err := fc.checkFeatures(p, caps); err != nil {
			return nil, err
		}
	}

	var buf []byte
	if sp, ok := h.impl.(secretPreparer); ok {
		buf, err = sp.prepare(&h.desc, secret, p, verifying)
	} else {
		buf, err = encodeSecret(h.desc.Encoding, secret)
	}
	if err != nil {
		return nil, err
	}
	defer wipe(buf)

	sum, err := eng.Checksum(buf, p)
	if err != nil {
		return nil, translateEngineError(h.desc.Name, caps.Engine, err)
	}
	return sum, nil
}

// translateEngineError maps errors raised inside an engine onto the package
// taxonomy.  Errors already in the taxonomy pass through unchanged.
func translateEngineError(name SchemeName, engine string, err error) error {
	for _, known := range []error{ErrFormat, ErrParameterRange, ErrBackendUnavailable, ErrUnsupportedFeature, ErrSizeLimit} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s %s engine: %w", ErrUnsupportedFeature, name, engine, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared helpers
// ──────────────────────────────────────────────────────────────────────────────

func checkSecretSize(secret string) error {
	if len(secret) > MaxSecretSize {
		return fmt.Errorf("%w: secret is %d bytes, maximum is %d", ErrSizeLimit, len(secret), MaxSecretSize)
	}
	return nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown secret encoding %q", ErrInvalidOption, name)
	}
	return enc, nil
}

// encodeSecret converts secret to bytes in the named encoding.  Secrets are
// Go strings and therefore already UTF-8; other encodings transcode.
func encodeSecret(name, secret string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(secret), nil
	}
	if n, _ := htmlindex.Name(enc); n == "utf-8" {
		return []byte(secret), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not representable in %s", ErrUnsupportedFeature, name)
	}
	return out, nil
}

// wipe zeroes b.  Called on buffers derived from the caller's secret.
func wipe(b []byte) {
	clear(b)
}

// randomBytes returns n cryptographically random bytes.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("hashing: failed to generate %d random bytes: %w", n, err)
	}
	return b, nil
}

// randomChars returns n characters drawn uniformly from charset.
func randomChars(charset string, n int) ([]byte, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return nil, fmt.Errorf("hashing: failed to generate salt: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return out, nil
}

// saltFor returns the variant's fixed salt or a freshly generated one.
func saltFor(d *Descriptor) ([]byte, error) {
	if d.Salt != nil {
		return cloneBytes(d.Salt), nil
	}
	if d.SaltChars == "" {
		return randomBytes(d.DefaultSaltSize)
	}
	return randomChars(d.SaltChars, d.DefaultSaltSize)
}

func b64Raw(b []byte) string { return base64.RawStdEncoding.EncodeToString(b) }
