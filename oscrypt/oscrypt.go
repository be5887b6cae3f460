// Package oscrypt exposes the platform crypt(3) facility.
//
// The cgo binding is only compiled on Linux with cgo enabled and the
// "oscrypt" build tag set, since it links against libcrypt.  Every other
// build gets a stub whose [Crypt] always fails with [ErrUnavailable], which
// lets callers probe for the facility at run time instead of at build time.
package oscrypt

import "errors"

var (
	// ErrUnavailable is returned when crypt(3) is not compiled into this
	// binary.
	ErrUnavailable = errors.New("oscrypt: crypt(3) is not available in this build")

	// ErrFailed is returned when crypt(3) returns NULL or one of its failure
	// tokens, which happens for settings it does not understand.
	ErrFailed = errors.New("oscrypt: crypt(3) rejected the setting")

	// ErrNullByte is returned for keys containing NUL, which C would
	// silently truncate.
	ErrNullByte = errors.New("oscrypt: key must not contain NUL bytes")
)
