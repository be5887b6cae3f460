package hashing

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ──────────────────────────────────────────────────────────────────────────────
// Defaults and bounds
// ──────────────────────────────────────────────────────────────────────────────

const (
	// DefaultArgon2Memory is the default memory cost in KiB (64 MiB).
	// OWASP ASVS Level 2 requires ≥ 19 MiB; 64 MiB is the standard production
	// recommendation for Argon2id.
	DefaultArgon2Memory = 64 * 1024

	// DefaultArgon2Time is the default number of iterations.
	DefaultArgon2Time = 3

	// DefaultArgon2Threads is the default degree of parallelism.
	DefaultArgon2Threads = 2

	// DefaultArgon2KeyLen is the default output key length in bytes.
	DefaultArgon2KeyLen = 32

	// DefaultArgon2SaltLen is the default random salt length in bytes.
	DefaultArgon2SaltLen = 16

	// Argon2Version10 and Argon2Version13 are the two published versions of
	// the algorithm.  Hashes without a "v=" segment are version 0x10.
	Argon2Version10 = 0x10
	Argon2Version13 = argon2.Version

	argon2MinMemoryCost  = 8
	argon2MaxParallelism = 1<<24 - 1
	argon2MinDigestSize  = 16
	argon2MinSaltSize    = 8
	argon2MaxSaltSize    = 1024
)

// ──────────────────────────────────────────────────────────────────────────────
// Scheme
// ──────────────────────────────────────────────────────────────────────────────

// argon2Scheme implements Argon2 in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2[,keyid=..][,data=..]$<salt>$<digest>
//
// Salt, data and digest use standard base64 without padding.  The salt and
// digest segments are optional (configuration-only form).
type argon2Scheme struct{}

func (argon2Scheme) descriptor() Descriptor {
	return Descriptor{
		Name: SchemeArgon2,
		Settings: []string{
			"salt", "salt_size", "rounds", "memory_cost", "parallelism",
			"checksum_size", "type", "max_threads",
		},
		MinSaltSize:     argon2MinSaltSize,
		MaxSaltSize:     argon2MaxSaltSize,
		DefaultSaltSize: DefaultArgon2SaltLen,
		MinRounds:       1,
		MaxRounds:       -1,
		DefaultRounds:   DefaultArgon2Time,
		RoundsCost:      CostLinear,
		ChecksumSize:    DefaultArgon2KeyLen,
		Types:           []string{"i", "d", "id"},
		Type:            "id",
		MemoryCost:      DefaultArgon2Memory,
		Parallelism:     DefaultArgon2Threads,
		MaxThreads:      -1,
	}
}

func (argon2Scheme) identify(hash string) bool {
	for _, t := range []string{"$argon2i$", "$argon2d$", "$argon2id$"} {
		if strings.HasPrefix(hash, t) {
			return true
		}
	}
	return false
}

// parse decodes a PHC string.  Segments after the leading "$" are the type,
// an optional version, the parameter list, then optional salt and digest.
func (argon2Scheme) parse(hash string) (*ParameterSet, error) {
	parts := strings.Split(hash, "$")
	if len(parts) < 3 || parts[0] != "" || !strings.HasPrefix(parts[1], "argon2") {
		return nil, fmt.Errorf("%w: not an argon2 PHC string", ErrFormat)
	}
	p := &ParameterSet{Type: strings.ToLower(strings.TrimPrefix(parts[1], "argon2")), Version: Argon2Version10}
	switch p.Type {
	case "i", "d", "id":
	default:
		return nil, fmt.Errorf("%w: unknown argon2 type %q", ErrFormat, p.Type)
	}
	parts = parts[2:]

	if strings.HasPrefix(parts[0], "v=") {
		v, err := parseKV(parts[0], "v")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if v != Argon2Version10 && v < Argon2Version13 {
			return nil, fmt.Errorf("%w: unknown argon2 version %#x", ErrFormat, v)
		}
		p.Version = int(v)
		parts = parts[1:]
	}
	if len(parts) == 0 || len(parts) > 3 {
		return nil, fmt.Errorf("%w: expected parameter, salt and digest segments", ErrFormat)
	}

	if err := parseParams(parts[0], p); err != nil {
		return nil, err
	}
	if len(parts) > 1 {
		salt, err := b64Decode(parts[1])
		if err != nil || len(salt) == 0 {
			return nil, fmt.Errorf("%w: invalid argon2 salt encoding", ErrFormat)
		}
		if len(salt) < argon2MinSaltSize || len(salt) > argon2MaxSaltSize {
			return nil, fmt.Errorf("%w: argon2 salt is %d bytes, must be in [%d, %d]",
				ErrParameterRange, len(salt), argon2MinSaltSize, argon2MaxSaltSize)
		}
		p.Salt = salt
	}
	if len(parts) > 2 {
		sum, err := b64Decode(parts[2])
		if err != nil || len(sum) == 0 {
			return nil, fmt.Errorf("%w: invalid argon2 digest encoding", ErrFormat)
		}
		p.Checksum = sum
		p.ChecksumSize = len(sum)
	}
	return p, nil
}

// parseParams decodes "m=65536,t=3,p=2[,keyid=...][,data=...]" into p.  The
// three cost parameters are mandatory and must appear in that order.
func parseParams(s string, p *ParameterSet) error {
	fields := strings.Split(s, ",")
	if len(fields) < 3 {
		return fmt.Errorf("%w: argon2 parameters %q must include m, t and p", ErrFormat, s)
	}
	var err error
	var v [3]uint64
	for i, key := range []string{"m", "t", "p"} {
		if v[i], err = parseKV(fields[i], key); err != nil {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	p.MemoryCost, p.Rounds, p.Parallelism = int(v[0]), int(v[1]), int(v[2])

	rest := fields[3:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "keyid=") {
		return fmt.Errorf("%w: argon2 keyid parameter", ErrUnsupportedFeature)
	}
	if len(rest) > 0 && strings.HasPrefix(rest[0], "data=") {
		data, err := b64Decode(strings.TrimPrefix(rest[0], "data="))
		if err != nil || len(data) == 0 {
			return fmt.Errorf("%w: invalid argon2 data encoding", ErrFormat)
		}
		p.Data = data
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: unexpected argon2 parameter %q", ErrFormat, rest[0])
	}

	if p.Rounds < 1 {
		return fmt.Errorf("%w: argon2 time cost must be ≥ 1", ErrParameterRange)
	}
	if p.Parallelism < 1 || p.Parallelism > argon2MaxParallelism {
		return fmt.Errorf("%w: argon2 parallelism %d must be in [1, %d]",
			ErrParameterRange, p.Parallelism, argon2MaxParallelism)
	}
	if p.MemoryCost < 8*p.Parallelism {
		return fmt.Errorf("%w: argon2 memory (%d KiB) must be ≥ 8×parallelism (%d KiB)",
			ErrParameterRange, p.MemoryCost, 8*p.Parallelism)
	}
	return nil
}

// parseKV parses a "key=value" string and returns the uint32 value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 32)
}

func b64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (argon2Scheme) render(p *ParameterSet) string {
	var b strings.Builder
	b.WriteString("$argon2" + p.Type + "$")
	if p.Version != Argon2Version10 {
		fmt.Fprintf(&b, "v=%d$", p.Version)
	}
	fmt.Fprintf(&b, "m=%d,t=%d,p=%d", p.MemoryCost, p.Rounds, p.Parallelism)
	if len(p.Data) > 0 {
		b.WriteString(",data=" + b64Raw(p.Data))
	}
	if p.Salt != nil {
		b.WriteString("$" + b64Raw(p.Salt))
		if p.Checksum != nil {
			b.WriteString("$" + b64Raw(p.Checksum))
		}
	}
	return b.String()
}

func (argon2Scheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt, err := saltFor(d)
	if err != nil {
		return nil, err
	}
	return &ParameterSet{
		Type:         d.Type,
		Version:      Argon2Version13,
		MemoryCost:   d.MemoryCost,
		Rounds:       d.DefaultRounds,
		Parallelism:  d.Parallelism,
		Salt:         salt,
		ChecksumSize: d.ChecksumSize,
	}, nil
}

func (argon2Scheme) backend() *backend { return argon2Backend }

// validate enforces the constraints between settings that Using checks one
// at a time.
func (argon2Scheme) validate(d *Descriptor) error {
	if d.MemoryCost < 8*d.Parallelism {
		return fmt.Errorf("%w: argon2 memory_cost (%d KiB) must be ≥ 8×parallelism (%d KiB)",
			ErrParameterRange, d.MemoryCost, 8*d.Parallelism)
	}
	for name, v := range map[string]int{"memory_cost": d.MemoryCost, "rounds": d.DefaultRounds, "checksum_size": d.ChecksumSize} {
		if int64(v) > math.MaxUint32 {
			return fmt.Errorf("%w: argon2 %s %d exceeds %d", ErrParameterRange, name, v, uint32(math.MaxUint32))
		}
	}
	return nil
}

func (argon2Scheme) checkFeatures(p *ParameterSet, caps Capabilities) error {
	if !caps.Has("type:" + p.Type) {
		return fmt.Errorf("%w: %s engine cannot compute argon2%s", ErrUnsupportedFeature, caps.Engine, p.Type)
	}
	if !caps.Has(fmt.Sprintf("version:%d", p.Version)) {
		return fmt.Errorf("%w: %s engine cannot compute argon2 version %#x", ErrUnsupportedFeature, caps.Engine, p.Version)
	}
	if len(p.Data) > 0 && !caps.Has("data") {
		return fmt.Errorf("%w: %s engine does not support argon2 associated data", ErrUnsupportedFeature, caps.Engine)
	}
	return nil
}

func (argon2Scheme) needsUpdate(d *Descriptor, p *ParameterSet) (bool, error) {
	return p.Type != d.Type ||
		p.Version < Argon2Version13 ||
		p.MemoryCost != d.MemoryCost ||
		(p.Checksum != nil && len(p.Checksum) != d.ChecksumSize) ||
		p.Rounds < d.DefaultRounds, nil
}

// info reports the PHC parameters.  The salt is reported base64 encoded.
func (argon2Scheme) info(p *ParameterSet) map[string]any {
	params := map[string]any{
		"type":        p.Type,
		"version":     p.Version,
		"memory_cost": p.MemoryCost,
		"rounds":      p.Rounds,
		"parallelism": p.Parallelism,
		"digest_size": p.ChecksumSize,
	}
	if p.Salt != nil {
		params["salt"] = b64Raw(p.Salt)
	}
	if p.Data != nil {
		params["data"] = b64Raw(p.Data)
	}
	return params
}

// ──────────────────────────────────────────────────────────────────────────────
// x/crypto engine
// ──────────────────────────────────────────────────────────────────────────────

// xcryptoArgon2 computes argon2i and argon2id version 0x13 digests.  The
// library fixes the goroutine count to the lane count, so max_threads has no
// effect on it.
type xcryptoArgon2 struct{}

func (xcryptoArgon2) features() []string {
	return []string{"type:i", "type:id", fmt.Sprintf("version:%d", argon2.Version)}
}

func (xcryptoArgon2) Checksum(secret []byte, p *ParameterSet) ([]byte, error) {
	if len(p.Salt) < argon2MinSaltSize {
		return nil, fmt.Errorf("%w: argon2 hash has no salt", ErrFormat)
	}
	if p.Parallelism > math.MaxUint8 {
		return nil, fmt.Errorf("%w: xcrypto engine supports at most %d lanes", ErrUnsupportedFeature, math.MaxUint8)
	}
	if p.Version != argon2.Version || len(p.Data) > 0 {
		return nil, fmt.Errorf("%w: xcrypto engine computes version %#x without data only", ErrUnsupportedFeature, argon2.Version)
	}
	size := p.ChecksumSize
	if size == 0 {
		size = DefaultArgon2KeyLen
	}

	t, m, lanes, keyLen := uint32(p.Rounds), uint32(p.MemoryCost), uint8(p.Parallelism), uint32(size)
	switch p.Type {
	case "i":
		return argon2.Key(secret, p.Salt, t, m, lanes, keyLen), nil
	case "id":
		return argon2.IDKey(secret, p.Salt, t, m, lanes, keyLen), nil
	}
	return nil, fmt.Errorf("%w: xcrypto engine cannot compute argon2%s", ErrUnsupportedFeature, p.Type)
}

func argon2Vector(typ, digest string) vector {
	sum, err := hex.DecodeString(digest)
	if err != nil {
		panic(err)
	}
	return vector{
		feature: "type:" + typ,
		secret:  []byte("password"),
		params: ParameterSet{
			Type:         typ,
			Version:      argon2.Version,
			MemoryCost:   64,
			Rounds:       1,
			Parallelism:  1,
			Salt:         []byte("somesalt"),
			Checksum:     sum,
			ChecksumSize: len(sum),
		},
	}
}

var argon2Backend = newBackend(string(SchemeArgon2),
	[]engineConstructor{
		{name: "xcrypto", build: builtinEngine(xcryptoArgon2{})},
	},
	[]vector{
		argon2Vector("id", "655ad15eac652dc59f7170a7332bf49b8469be1fdb9c28bb"),
	},
	[]vector{
		argon2Vector("i", "b9c401d1844a67d50eae3967dc28870b22e508092e861a37"),
		argon2Vector("d", "8727405fd07c32c78d64f547f24150d3f2e703a89f981a19"),
	},
)
