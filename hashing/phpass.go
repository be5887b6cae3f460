package hashing

import (
	"crypto/md5"
	"fmt"
	"slices"
	"strings"

	"github.com/hasbyte1/go-passlib-utils/h64"
)

const (
	phpassSaltSize      = 8
	phpassMinRounds     = 7
	phpassMaxRounds     = 30
	phpassDefaultRounds = 19
)

var phpassChecksumSize = h64.EncodedLen(md5.Size)

// phpassScheme implements the portable PHPass hash used by WordPress and
// phpBB3:
//
//	$P$<rounds char><8 char salt><22 char checksum>
//
// The rounds character is the hash64 digit of the log2 iteration count.
// "$H$" is the phpBB3 spelling of the same format.
type phpassScheme struct{}

func (phpassScheme) descriptor() Descriptor {
	return Descriptor{
		Name:            SchemePHPass,
		Settings:        []string{"salt", "rounds", "ident"},
		Ident:           "$P$",
		Idents:          []string{"$P$", "$H$"},
		SaltChars:       h64.Alphabet,
		MinSaltSize:     phpassSaltSize,
		MaxSaltSize:     phpassSaltSize,
		DefaultSaltSize: phpassSaltSize,
		MinRounds:       phpassMinRounds,
		MaxRounds:       phpassMaxRounds,
		DefaultRounds:   phpassDefaultRounds,
		RoundsCost:      CostLog2,
		ChecksumSize:    phpassChecksumSize,
	}
}

func (s phpassScheme) identify(hash string) bool {
	_, err := s.parse(hash)
	return err == nil
}

// parse accepts the full hash and the configuration-only form without a
// checksum.
func (phpassScheme) parse(hash string) (*ParameterSet, error) {
	if len(hash) < 3 || !slices.Contains([]string{"$P$", "$H$"}, hash[:3]) {
		return nil, fmt.Errorf("%w: phpass hash must start with \"$P$\" or \"$H$\"", ErrFormat)
	}
	ident, rest := hash[:3], hash[3:]
	if len(rest) < 1+phpassSaltSize {
		return nil, fmt.Errorf("%w: phpass hash is truncated", ErrFormat)
	}
	rounds := h64.Index(rest[0])
	if rounds < phpassMinRounds || rounds > phpassMaxRounds {
		return nil, fmt.Errorf("%w: phpass rounds character %q must encode [%d, %d]",
			ErrFormat, rest[0], phpassMinRounds, phpassMaxRounds)
	}
	salt, chk := rest[1:1+phpassSaltSize], rest[1+phpassSaltSize:]
	if !h64.Valid(salt) {
		return nil, fmt.Errorf("%w: malformed phpass salt", ErrFormat)
	}
	p := &ParameterSet{Ident: ident, Rounds: rounds, Salt: []byte(salt)}
	if chk == "" {
		return p, nil
	}
	if len(chk) != phpassChecksumSize {
		return nil, fmt.Errorf("%w: phpass checksum must be %d characters", ErrFormat, phpassChecksumSize)
	}
	if _, err := h64.Decode(chk); err != nil {
		return nil, fmt.Errorf("%w: malformed phpass checksum: %w", ErrFormat, err)
	}
	p.Checksum = []byte(chk)
	return p, nil
}

func (phpassScheme) render(p *ParameterSet) string {
	var b strings.Builder
	b.WriteString(p.Ident)
	b.WriteByte(h64.Alphabet[p.Rounds])
	b.Write(p.Salt)
	b.Write(p.Checksum)
	return b.String()
}

func (phpassScheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt, err := saltFor(d)
	if err != nil {
		return nil, err
	}
	return &ParameterSet{Ident: d.Ident, Rounds: d.DefaultRounds, Salt: salt}, nil
}

func (phpassScheme) backend() *backend { return phpassBackend }

func (phpassScheme) needsUpdate(d *Descriptor, p *ParameterSet) (bool, error) {
	return p.Rounds < d.DefaultRounds, nil
}

// phpassChecksum iterates MD5 2^rounds times over the previous digest and
// the secret.
func phpassChecksum(secret []byte, p *ParameterSet) ([]byte, error) {
	if p.Rounds < phpassMinRounds || p.Rounds > phpassMaxRounds {
		return nil, fmt.Errorf("%w: phpass rounds %d must be in [%d, %d]",
			ErrParameterRange, p.Rounds, phpassMinRounds, phpassMaxRounds)
	}
	h := md5.New()
	h.Write(p.Salt)
	h.Write(secret)
	sum := h.Sum(nil)
	for n := 1 << p.Rounds; n > 0; n-- {
		h.Reset()
		h.Write(sum)
		h.Write(secret)
		sum = h.Sum(sum[:0])
	}
	return []byte(h64.Encode(sum)), nil
}

var phpassBackend = newBackend(string(SchemePHPass),
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(phpassChecksum))},
	},
	[]vector{
		{
			secret: []byte("test"),
			params: ParameterSet{Ident: "$P$", Rounds: 7, Salt: []byte("abcdefgh"), Checksum: []byte("uGnpkY5zYNED.dJ1.sD660")},
		},
		{
			secret: []byte("password"),
			params: ParameterSet{Ident: "$H$", Rounds: 7, Salt: []byte("abcdefgh"), Checksum: []byte("TirbPJao7vjX0d/TOtGeU/")},
		},
	},
	nil,
)
