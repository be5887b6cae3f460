package hashing_test

import (
	"testing"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

// mustNew returns the handler for name with opts applied or fails the test.
// It accepts testing.TB so benchmarks can share it.
func mustNew(tb testing.TB, name hashing.SchemeName, opts ...hashing.Option) *hashing.Handler {
	tb.Helper()
	h, err := hashing.New(name, opts...)
	if err != nil {
		tb.Fatalf("New(%s): %v", name, err)
	}
	return h
}

// hashVector is a known (secret, hash) pair, optionally with a username.
type hashVector struct {
	secret string
	user   string
	hash   string
}

// checkVectors verifies every vector, checks that a wrong secret is
// rejected, and recomputes the hash from its own configuration.
func checkVectors(t *testing.T, h *hashing.Handler, vectors []hashVector) {
	t.Helper()
	for _, v := range vectors {
		opts := []hashing.CallOption{hashing.WithUser(v.user)}

		if !h.Identify(v.hash) {
			t.Errorf("Identify(%q) = false", v.hash)
			continue
		}
		ok, err := h.Verify(v.secret, v.hash, opts...)
		if err != nil {
			t.Errorf("Verify(%q, %q): %v", v.secret, v.hash, err)
			continue
		}
		if !ok {
			t.Errorf("Verify(%q, %q) = false, want true", v.secret, v.hash)
		}
		if ok, _ := h.Verify("x"+v.secret, v.hash, opts...); ok {
			t.Errorf("Verify(%q, %q) = true, want false", "x"+v.secret, v.hash)
		}
		got, err := h.Genhash(v.secret, v.hash, opts...)
		if err != nil {
			t.Errorf("Genhash(%q, %q): %v", v.secret, v.hash, err)
			continue
		}
		if got != v.hash {
			t.Errorf("Genhash(%q) = %q, want %q", v.secret, got, v.hash)
		}
	}
}
