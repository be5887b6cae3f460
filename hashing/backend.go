package hashing

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Engine computes the checksum portion of a hash from prepared secret bytes
// and a parsed parameter set.  Engines must be safe for concurrent use.
type Engine interface {
	Checksum(secret []byte, p *ParameterSet) ([]byte, error)
}

// EngineFunc adapts an ordinary function to the [Engine] interface.
type EngineFunc func(secret []byte, p *ParameterSet) ([]byte, error)

// Checksum calls f(secret, p).
func (f EngineFunc) Checksum(secret []byte, p *ParameterSet) ([]byte, error) { return f(secret, p) }

// featureSource is implemented by engines that declare capabilities which
// cannot be established with a reference vector.
type featureSource interface {
	features() []string
}

// BackendState is the resolution state of a scheme's checksum engine.
type BackendState int32

const (
	BackendUnresolved BackendState = iota
	BackendProbing
	BackendResolved
	BackendUnavailable
)

func (s BackendState) String() string {
	switch s {
	case BackendUnresolved:
		return "unresolved"
	case BackendProbing:
		return "probing"
	case BackendResolved:
		return "resolved"
	case BackendUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("BackendState(%d)", int32(s))
}

// Capabilities is the capability ceiling of the resolved engine.
type Capabilities struct {
	Engine   string
	Features map[string]bool
}

// Has reports whether the engine supports feature.
func (c Capabilities) Has(feature string) bool { return c.Features[feature] }

// engineConstructor builds one candidate engine.  A build error means the
// engine is not present in this process (missing cgo, missing library).
type engineConstructor struct {
	name  string
	build func() (Engine, error)
}

// vector is a known answer: Checksum of secret under params.  Optional
// vectors carry the feature they establish.
type vector struct {
	feature string
	secret  []byte
	params  ParameterSet
}

func (v vector) passes(eng Engine) error {
	p := v.params.Clone()
	p.Checksum = nil
	sum, err := eng.Checksum(cloneBytes(v.secret), p)
	if err != nil {
		return err
	}
	if !bytes.Equal(sum, v.params.Checksum) {
		return fmt.Errorf("self-test mismatch: got %q, want %q", sum, v.params.Checksum)
	}
	return nil
}

type resolution struct {
	state  BackendState
	name   string
	engine Engine
	caps   Capabilities
	err    error
}

// backend resolves and caches one checksum engine for a scheme.  The
// resolution pointer is written only while holding mu; readers load it
// without locking.
type backend struct {
	key     string
	engines []engineConstructor
	vectors []vector
	probes  []vector

	mu  sync.Mutex
	res atomic.Pointer[resolution]
}

var (
	registryMu sync.Mutex
	registry   []*backend
)

func newBackend(key string, engines []engineConstructor, vectors, probes []vector) *backend {
	b := &backend{key: key, engines: engines, vectors: vectors, probes: probes}
	registryMu.Lock()
	registry = append(registry, b)
	registryMu.Unlock()
	return b
}

// ResetBackends returns every scheme backend to the unresolved state.  It
// is intended for test isolation.
func ResetBackends() {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, b := range registry {
		b.reset()
	}
}

// BackendStates reports the resolution state of every backend, keyed by
// backend name ("md5_crypt", "bcrypt", "des_crypt", ...).
func BackendStates() map[string]BackendState {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make(map[string]BackendState, len(registry))
	for _, b := range registry {
		out[b.key] = b.state()
	}
	return out
}

func (b *backend) state() BackendState {
	if r := b.res.Load(); r != nil {
		return r.state
	}
	return BackendUnresolved
}

// resolve returns the cached engine, probing candidates in preference order
// on first use.  Concurrent callers block on mu and observe the single
// probe's outcome.
func (b *backend) resolve() (Engine, Capabilities, error) {
	if r := b.res.Load(); r != nil && r.state != BackendProbing {
		return r.engine, r.caps, r.err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.res.Load(); r != nil && r.state != BackendProbing {
		return r.engine, r.caps, r.err
	}
	b.res.Store(&resolution{state: BackendProbing})

	for _, c := range b.engines {
		eng, caps, err := b.probe(c)
		if err != nil {
			continue
		}
		b.res.Store(&resolution{state: BackendResolved, name: c.name, engine: eng, caps: caps})
		return eng, caps, nil
	}

	err := fmt.Errorf("%w: %s: tried %v", ErrBackendUnavailable, b.key, b.names())
	log().WithField("backend", b.key).Warn("no checksum engine passed its self-test")
	b.res.Store(&resolution{state: BackendUnavailable, err: err})
	return nil, Capabilities{}, err
}

// probe builds c and runs the self-test vectors.  Optional probes that fail
// only lower the capability ceiling.
func (b *backend) probe(c engineConstructor) (Engine, Capabilities, error) {
	entry := log().WithField("backend", b.key).WithField("engine", c.name)

	eng, err := c.build()
	if err == nil {
		for _, v := range b.vectors {
			if err = v.passes(eng); err != nil {
				break
			}
		}
	}
	observeProbe(b.key, c.name, err)
	if err != nil {
		entry.WithError(err).Debug("engine rejected")
		return nil, Capabilities{}, err
	}

	caps := Capabilities{Engine: c.name, Features: map[string]bool{}}
	for _, v := range b.vectors {
		if v.feature != "" {
			caps.Features[v.feature] = true
		}
	}
	for _, v := range b.probes {
		caps.Features[v.feature] = v.passes(eng) == nil
	}
	if fs, ok := eng.(featureSource); ok {
		for _, f := range fs.features() {
			caps.Features[f] = true
		}
	}
	entry.WithField("features", featureList(caps)).Debug("engine selected")
	return eng, caps, nil
}

func featureList(c Capabilities) []string {
	out := make([]string, 0, len(c.Features))
	for f, ok := range c.Features {
		if ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func (b *backend) current() string {
	if r := b.res.Load(); r != nil {
		return r.name
	}
	return ""
}

func (b *backend) names() []string {
	out := make([]string, len(b.engines))
	for i, c := range b.engines {
		out[i] = c.name
	}
	return out
}

func (b *backend) lookup(name string) (engineConstructor, error) {
	i := slices.IndexFunc(b.engines, func(c engineConstructor) bool { return c.name == name })
	if i < 0 {
		return engineConstructor{}, fmt.Errorf("%w: %s has no %q backend (have %v)", ErrBackendUnavailable, b.key, name, b.names())
	}
	return b.engines[i], nil
}

// check builds and self-tests the named engine without selecting it.
func (b *backend) check(name string) error {
	c, err := b.lookup(name)
	if err != nil {
		return err
	}
	_, _, err = b.probe(c)
	return err
}

// force selects the named engine.  "any" resets and resolves in preference
// order.
func (b *backend) force(name string) error {
	if name == "any" {
		b.reset()
		_, _, err := b.resolve()
		return err
	}
	c, err := b.lookup(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	eng, caps, err := b.probe(c)
	if err != nil {
		return fmt.Errorf("%w: %s %s engine: %v", ErrBackendUnavailable, b.key, name, err)
	}
	b.res.Store(&resolution{state: BackendResolved, name: c.name, engine: eng, caps: caps})
	return nil
}

func (b *backend) reset() {
	b.mu.Lock()
	b.res.Store(nil)
	b.mu.Unlock()
}
