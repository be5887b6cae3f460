package hashing

import "errors"

// Sentinel errors returned by hashing operations.
//
// Every error returned by a [Handler] or [Manager] wraps exactly one of the
// taxonomy errors below, so callers can branch with [errors.Is]:
//
//	ok, err := h.Verify(password, hash)
//	switch {
//	case errors.Is(err, hashing.ErrFormat):
//	    // stored hash is malformed
//	case errors.Is(err, hashing.ErrBackendUnavailable):
//	    // this process cannot compute the scheme at all
//	}
//
// Errors raised by checksum engines (crypt(3), blowfish, argon2) are
// translated into this taxonomy at the handler boundary and never leak raw.
var (
	// ErrFormat is returned when a hash string does not match the scheme's
	// grammar, has invalid encoding, or lacks a checksum where one is needed.
	ErrFormat = errors.New("hashing: invalid or unrecognised hash string")

	// ErrParameterRange is returned when a salt, rounds value, or other
	// parameter falls outside the scheme's bounds and the relaxed policy is
	// not in effect.
	ErrParameterRange = errors.New("hashing: parameter out of range")

	// ErrBackendUnavailable is returned when no checksum engine for a scheme
	// passed its self-test.  It is permanent for the life of the process
	// unless backends are reset.
	ErrBackendUnavailable = errors.New("hashing: no backend available")

	// ErrUnsupportedFeature is returned for structurally valid input that the
	// resolved engine cannot compute, such as an argon2 keyid, an argon2d
	// hash, or a bcrypt ident the engine does not implement.
	ErrUnsupportedFeature = errors.New("hashing: unsupported feature")

	// ErrSizeLimit is returned when a secret exceeds a scheme's historical
	// length cap at hash time, or the global [MaxSecretSize].
	ErrSizeLimit = errors.New("hashing: secret exceeds size limit")

	// ErrInvalidOption is returned for unknown settings, settings a scheme
	// does not accept, values of the wrong type, and mutually exclusive
	// aliases supplied together (e.g. rounds and time_cost).
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrSchemeNotFound is returned by [Manager.Handler] or indirectly by
	// [Manager.Hash] / [Manager.Verify] when the requested scheme has not
	// been registered.
	ErrSchemeNotFound = errors.New("hashing: scheme not found")

	// ErrEmptySchemeName is returned by [Manager.Register] when the supplied
	// scheme name is an empty string.
	ErrEmptySchemeName = errors.New("hashing: scheme name must not be empty")

	// ErrNilScheme is returned by [Manager.Register] when a nil [Scheme] is
	// supplied.
	ErrNilScheme = errors.New("hashing: scheme must not be nil")

	// ErrAlgorithmMismatch is returned by [Manager.Verify] when an explicitly
	// requested scheme does not recognise the hash.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")
)
