//go:build !(cgo && linux && oscrypt)

package oscrypt

// Available reports whether crypt(3) is compiled in.
func Available() bool { return false }

// Crypt always fails with [ErrUnavailable] in this build.
func Crypt(key []byte, setting string) (string, error) {
	return "", ErrUnavailable
}
