package hashing

import (
	"errors"

	"github.com/hasbyte1/go-passlib-utils/oscrypt"
)

// osCryptEngine adapts the host crypt(3) to an [Engine].  setting renders
// the crypt(3) configuration string for p and extract pulls the checksum out
// of crypt's output.  Inputs crypt(3) cannot represent (NUL bytes, or a
// setting the library silently refuses) are handed to fallback when it is
// non-nil.
func osCryptEngine(setting func(p *ParameterSet) string, extract func(out string) []byte, fallback Engine) func() (Engine, error) {
	return func() (Engine, error) {
		if !oscrypt.Available() {
			return nil, oscrypt.ErrUnavailable
		}
		return EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
			out, err := oscrypt.Crypt(secret, setting(p))
			if err != nil {
				if fallback != nil && (errors.Is(err, oscrypt.ErrNullByte) || errors.Is(err, oscrypt.ErrFailed)) {
					return fallback.Checksum(secret, p)
				}
				return nil, err
			}
			return extract(out), nil
		}), nil
	}
}

// afterLastDollar returns the checksum field of a modular crypt string.
func afterLastDollar(out string) []byte {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == '$' {
			return []byte(out[i+1:])
		}
	}
	return []byte(out)
}

func builtinEngine(e Engine) func() (Engine, error) {
	return func() (Engine, error) { return e, nil }
}
