package hashing

import (
	"fmt"
	"slices"
	"sync"
)

// Manager is a thread-safe scheme registry and dispatcher.
//
// Register one or more named [Scheme] implementations, nominate a default
// scheme for new hashes, and then verify stored hashes of any registered
// scheme through the Manager.  Stored hashes are matched against schemes in
// registration order, so register stricter grammars first when two schemes
// can claim the same string.
//
// # Thread safety
//
// All Manager methods are safe for concurrent use by multiple goroutines.
// A [sync.RWMutex] serialises writes (Register, SetDefault) while allowing
// concurrent reads (Hash, Verify, etc.).
type Manager struct {
	mu      sync.RWMutex
	schemes map[SchemeName]Scheme
	order   []SchemeName
	def     SchemeName
}

// NewManager creates an empty Manager with the given default scheme name.
// Schemes must be registered with [Manager.Register] before any hashing
// operation is invoked through the Manager.
//
// Use [NewDefaultManager] for the batteries-included variant that registers
// every built-in scheme.
func NewManager(defaultScheme SchemeName) *Manager {
	return &Manager{
		schemes: make(map[SchemeName]Scheme),
		def:     defaultScheme,
	}
}

// NewDefaultManager creates a Manager with every built-in scheme registered
// in [DetectScheme] order using its default settings.  The default scheme is
// [SchemeArgon2].
//
//	m, err := hashing.NewDefaultManager()
//	hash, _ := m.Hash("secret")
func NewDefaultManager() (*Manager, error) {
	m := NewManager(SchemeArgon2)
	for _, name := range Schemes() {
		h, err := New(name)
		if err != nil {
			return nil, fmt.Errorf("hashing: failed to create default %s handler: %w", name, err)
		}
		if err := m.Register(name, h); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds or replaces a named scheme.  A replaced scheme keeps its
// position in the detection order.
func (m *Manager) Register(name SchemeName, s Scheme) error {
	if name == "" {
		return ErrEmptySchemeName
	}
	if s == nil {
		return ErrNilScheme
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemes[name]; !ok {
		m.order = append(m.order, name)
	}
	m.schemes[name] = s
	return nil
}

// Handler returns the [Scheme] registered under name, or [ErrSchemeNotFound].
func (m *Manager) Handler(name SchemeName) (Scheme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemeNotFound, name)
	}
	return s, nil
}

// SetDefault changes the scheme used by [Manager.Hash].  The named scheme
// must already be registered.
func (m *Manager) SetDefault(name SchemeName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemes[name]; !ok {
		return fmt.Errorf("%w: %q is not registered; call Register first", ErrSchemeNotFound, name)
	}
	m.def = name
	return nil
}

// Default returns the name of the current default scheme.
func (m *Manager) Default() SchemeName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def
}

// Has reports whether a scheme with the given name is registered.
func (m *Manager) Has(name SchemeName) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.schemes[name]
	return ok
}

// SchemeNames returns the registered scheme names in registration order.
func (m *Manager) SchemeNames() []SchemeName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Identify returns the first registered scheme that recognises hash.
func (m *Manager) Identify(hash string) (SchemeName, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.order {
		if m.schemes[name].Identify(hash) {
			return name, true
		}
	}
	return "", false
}

// Hash hashes secret with the default scheme.
func (m *Manager) Hash(secret string, opts ...CallOption) (string, error) {
	s, err := m.resolveDefault()
	if err != nil {
		return "", err
	}
	return s.Hash(secret, opts...)
}

// Verify verifies secret against hash, dispatching to whichever registered
// scheme recognises it.  Returns [ErrFormat] when no scheme does.
func (m *Manager) Verify(secret, hash string, opts ...CallOption) (bool, error) {
	s, err := m.resolveByHash(hash)
	if err != nil {
		return false, err
	}
	return s.Verify(secret, hash, opts...)
}

// VerifyWith verifies secret against hash using the named scheme.  It
// returns [ErrAlgorithmMismatch] when that scheme does not recognise hash.
func (m *Manager) VerifyWith(name SchemeName, secret, hash string, opts ...CallOption) (bool, error) {
	s, err := m.Handler(name)
	if err != nil {
		return false, err
	}
	if !s.Identify(hash) {
		return false, fmt.Errorf("%w: hash is not a %s hash", ErrAlgorithmMismatch, name)
	}
	return s.Verify(secret, hash, opts...)
}

// VerifyAndUpdate verifies secret against hash and, when it matches and
// [Manager.NeedsUpdate] reports true, re-hashes it with the default scheme.
// newHash is empty unless a replacement was produced; persist it when set.
//
//	ok, newHash, err := m.VerifyAndUpdate(password, stored)
//	if ok && newHash != "" {
//	    persist(userID, newHash)
//	}
func (m *Manager) VerifyAndUpdate(secret, hash string, opts ...CallOption) (ok bool, newHash string, err error) {
	ok, err = m.Verify(secret, hash, opts...)
	if err != nil || !ok {
		return ok, "", err
	}
	needs, err := m.NeedsUpdate(hash)
	if err != nil || !needs {
		return ok, "", err
	}
	newHash, err = m.Hash(secret, opts...)
	if err != nil {
		return ok, "", err
	}
	return ok, newHash, nil
}

// NeedsUpdate reports whether hash should be re-hashed.
//
// It returns true when:
//  1. The hash was produced by a different scheme than the current default, OR
//  2. The hash was produced by the default scheme but with parameters that
//     differ from its configured defaults (e.g., a lower bcrypt cost).
func (m *Manager) NeedsUpdate(hash string) (bool, error) {
	detected, ok := m.Identify(hash)
	if !ok {
		return false, fmt.Errorf("%w: no registered scheme recognises the hash", ErrFormat)
	}
	if detected != m.Default() {
		return true, nil
	}
	s, err := m.Handler(detected)
	if err != nil {
		return false, err
	}
	return s.NeedsUpdate(hash)
}

// Info extracts metadata from hash using the scheme that recognises it.
func (m *Manager) Info(hash string) (HashInfo, error) {
	s, err := m.resolveByHash(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return s.Info(hash)
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────────────────────────────────

func (m *Manager) resolveDefault() (Scheme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemes[m.def]
	if !ok {
		return nil, fmt.Errorf("%w: default scheme %q has not been registered",
			ErrSchemeNotFound, m.def)
	}
	return s, nil
}

func (m *Manager) resolveByHash(hash string) (Scheme, error) {
	name, ok := m.Identify(hash)
	if !ok {
		return nil, fmt.Errorf("%w: no registered scheme recognises the hash", ErrFormat)
	}
	return m.Handler(name)
}
