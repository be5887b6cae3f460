package hashing

import "fmt"

// SchemeName identifies a password hash scheme.
// Using a named string type prevents accidental confusion with plain strings.
type SchemeName string

const (
	// SchemeMD5Crypt is the FreeBSD MD5-crypt scheme ($1$).
	SchemeMD5Crypt SchemeName = "md5_crypt"
	// SchemeAprMD5Crypt is the Apache htpasswd variant of MD5-crypt ($apr1$).
	SchemeAprMD5Crypt SchemeName = "apr_md5_crypt"
	// SchemePHPass is the portable PHPass hash ($P$, $H$).
	SchemePHPass SchemeName = "phpass"
	// SchemeNTHash is the Windows NT hash ($3$$, $NT$).
	SchemeNTHash SchemeName = "nthash"
	// SchemeBcrypt is OpenBSD bcrypt ($2$, $2a$, $2b$, $2y$).
	SchemeBcrypt SchemeName = "bcrypt"
	// SchemeArgon2 is Argon2 in PHC string format (recommended for new systems).
	SchemeArgon2 SchemeName = "argon2"
	// SchemeCiscoPIX is the Cisco PIX "encrypted" password hash.
	SchemeCiscoPIX SchemeName = "cisco_pix"
	// SchemeCiscoASA is the Cisco ASA variant of the PIX hash.
	SchemeCiscoASA SchemeName = "cisco_asa"
	// SchemeCiscoType7 is the reversible Cisco IOS "type 7" encoding.
	SchemeCiscoType7 SchemeName = "cisco_type7"
	// SchemeOracle10 is the Oracle 10g DES-based hash (username salted).
	SchemeOracle10 SchemeName = "oracle10"
	// SchemeOracle11 is the Oracle 11g salted SHA-1 hash ("S:" prefix).
	SchemeOracle11 SchemeName = "oracle11"
	// SchemeDjangoSaltedSHA1 is Django's legacy "sha1$salt$hex" format.
	SchemeDjangoSaltedSHA1 SchemeName = "django_salted_sha1"
	// SchemeDjangoSaltedMD5 is Django's legacy "md5$salt$hex" format.
	SchemeDjangoSaltedMD5 SchemeName = "django_salted_md5"
	// SchemeDjangoDESCrypt is Django's "crypt$salt$des_crypt" wrapper.
	SchemeDjangoDESCrypt SchemeName = "django_des_crypt"
	// SchemeDjangoDisabled is Django's "!" marker for disabled accounts.
	SchemeDjangoDisabled SchemeName = "django_disabled"
)

// MaxSecretSize is the largest secret, in bytes, that any scheme will
// process.  Longer secrets fail with [ErrSizeLimit] before any hashing work
// is done.
const MaxSecretSize = 4096

// Scheme is the interface satisfied by every password hash scheme handler.
//
// All implementations must be safe for concurrent use by multiple goroutines.
type Scheme interface {
	// Name returns the SchemeName implemented by this handler.
	Name() SchemeName

	// Identify reports whether hash is structurally an instance of this
	// scheme.  It never returns an error and never panics.
	Identify(hash string) bool

	// Hash hashes secret with a fresh salt and the handler's configured
	// defaults and returns the encoded hash string.
	Hash(secret string, opts ...CallOption) (string, error)

	// Verify reports whether secret matches hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or
	// (false, err) if the hash is structurally invalid or cannot be computed.
	//
	// Comparison is performed in constant time.
	Verify(secret, hash string, opts ...CallOption) (bool, error)

	// NeedsUpdate returns true when hash was produced with parameters weaker
	// than, or different from, the handler's current defaults.  Callers
	// should re-hash the password on next successful login.
	NeedsUpdate(hash string) (bool, error)

	// Info extracts metadata from an encoded hash string without verifying it.
	Info(hash string) (HashInfo, error)
}

// HashInfo carries metadata parsed from an encoded hash string.
type HashInfo struct {
	// Scheme is the scheme that produced the hash.
	Scheme SchemeName

	// Params holds scheme-specific parameters extracted from the hash string.
	//
	// For bcrypt:
	//   "ident" → string, "rounds" → int
	//
	// For argon2:
	//   "type" → string, "version" → int, "memory_cost" → int (KiB),
	//   "rounds" → int, "parallelism" → int, "digest_size" → int
	//
	// For salted schemes:
	//   "salt" → string (argon2 salt is reported base64 encoded)
	Params map[string]any
}

// detectionOrder is the order in which [DetectScheme] tries the built-in
// schemes.  Stricter grammars come first: an Oracle 10g hash is also a valid
// PIX hash and may also be a valid type 7 string.
var detectionOrder = []SchemeName{
	SchemeArgon2,
	SchemeBcrypt,
	SchemeMD5Crypt,
	SchemeAprMD5Crypt,
	SchemePHPass,
	SchemeNTHash,
	SchemeOracle11,
	SchemeDjangoSaltedSHA1,
	SchemeDjangoSaltedMD5,
	SchemeDjangoDESCrypt,
	SchemeDjangoDisabled,
	SchemeOracle10,
	SchemeCiscoType7,
	SchemeCiscoPIX,
	SchemeCiscoASA,
}

// DetectScheme inspects a hash string and returns the built-in [SchemeName]
// whose grammar it matches first.  It is a best-effort heuristic and does
// not verify the hash itself.
//
// Some legacy formats are ambiguous (PIX and ASA hashes are
// indistinguishable); use a [Manager] with an explicit registration order
// when that matters.
//
// The second return value is false when the hash format is not recognised.
func DetectScheme(hash string) (SchemeName, bool) {
	for _, name := range detectionOrder {
		if builtinSchemes[name]().identify(hash) {
			return name, true
		}
	}
	return "", false
}

// Schemes returns the names of all built-in schemes in detection order.
func Schemes() []SchemeName {
	out := make([]SchemeName, len(detectionOrder))
	copy(out, detectionOrder)
	return out
}

// builtinSchemes maps each built-in scheme to its definition constructor.
var builtinSchemes = map[SchemeName]func() scheme{
	SchemeMD5Crypt:         func() scheme { return md5CryptScheme{tag: md5CryptTag} },
	SchemeAprMD5Crypt:      func() scheme { return md5CryptScheme{tag: aprMD5CryptTag} },
	SchemePHPass:           func() scheme { return phpassScheme{} },
	SchemeNTHash:           func() scheme { return nthashScheme{} },
	SchemeBcrypt:           func() scheme { return bcryptScheme{} },
	SchemeArgon2:           func() scheme { return argon2Scheme{} },
	SchemeCiscoPIX:         func() scheme { return ciscoPIXScheme{asa: false} },
	SchemeCiscoASA:         func() scheme { return ciscoPIXScheme{asa: true} },
	SchemeCiscoType7:       func() scheme { return ciscoType7Scheme{} },
	SchemeOracle10:         func() scheme { return oracle10Scheme{} },
	SchemeOracle11:         func() scheme { return oracle11Scheme{} },
	SchemeDjangoSaltedSHA1: func() scheme { return djangoSaltedScheme{sha1: true} },
	SchemeDjangoSaltedMD5:  func() scheme { return djangoSaltedScheme{sha1: false} },
	SchemeDjangoDESCrypt:   func() scheme { return djangoDESCryptScheme{} },
	SchemeDjangoDisabled:   func() scheme { return djangoDisabledScheme{} },
}

// New constructs a [Handler] for the named built-in scheme, applying opts on
// top of the scheme defaults.  It is equivalent to creating the default
// handler and calling [Handler.Using].
func New(name SchemeName, opts ...Option) (*Handler, error) {
	ctor, ok := builtinSchemes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemeNotFound, name)
	}
	impl := ctor()
	h := &Handler{desc: impl.descriptor(), impl: impl}
	if len(opts) == 0 {
		return h, nil
	}
	return h.Using(opts...)
}
