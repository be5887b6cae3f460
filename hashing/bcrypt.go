package hashing

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blowfish"

	"github.com/hasbyte1/go-passlib-utils/h64"
)

const (
	// DefaultBcryptCost is the recommended work factor for bcrypt.
	// At cost 12, hashing takes approximately 250 ms on a modern server CPU,
	// which satisfies OWASP ASVS Level 1 (≥ 10) and Level 2 (≥ 12).
	//
	// Increase this value as hardware improves; aim to keep hashing time
	// between 100 ms and 500 ms for your deployment environment.
	DefaultBcryptCost = 12

	// BcryptTruncateSize is the number of secret bytes bcrypt consumes.
	BcryptTruncateSize = 72

	bcryptSaltSize     = 22
	bcryptChecksumSize = 31
	bcryptRawSaltSize  = 16
)

var (
	bcryptPattern = regexp.MustCompile(`^(\$2[aby]?\$)(\d{2})\$([./A-Za-z0-9]{22})([./A-Za-z0-9]{31})?$`)

	bcryptMagic = []byte("OrpheanBeholderScryDoubt")
)

// bcryptScheme implements OpenBSD bcrypt.
//
// Hash strings use the modular crypt layout
//
//	$2a$12$<22 char salt><31 char checksum>
//
// The cost is always two zero-padded digits.  "$2$" hashes are computed
// without the trailing NUL that later idents add to the key.
type bcryptScheme struct{}

func (bcryptScheme) descriptor() Descriptor {
	return Descriptor{
		Name:            SchemeBcrypt,
		Settings:        []string{"salt", "rounds", "ident", "truncate_error"},
		Ident:           "$2a$",
		Idents:          []string{"$2$", "$2a$", "$2b$", "$2y$"},
		SaltChars:       h64.BcryptAlphabet,
		MinSaltSize:     bcryptSaltSize,
		MaxSaltSize:     bcryptSaltSize,
		DefaultSaltSize: bcryptSaltSize,
		MinRounds:       bcrypt.MinCost,
		MaxRounds:       bcrypt.MaxCost,
		DefaultRounds:   DefaultBcryptCost,
		RoundsCost:      CostLog2,
		ChecksumSize:    bcryptChecksumSize,
		TruncateSize:    BcryptTruncateSize,
	}
}

func (bcryptScheme) identify(hash string) bool {
	return bcryptPattern.MatchString(hash)
}

func (bcryptScheme) parse(hash string) (*ParameterSet, error) {
	m := bcryptPattern.FindStringSubmatch(hash)
	if m == nil {
		return nil, fmt.Errorf("%w: malformed bcrypt hash", ErrFormat)
	}
	rounds, _ := strconv.Atoi(m[2])
	if rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d must be in [%d, %d]",
			ErrParameterRange, rounds, bcrypt.MinCost, bcrypt.MaxCost)
	}
	p := &ParameterSet{Ident: m[1], Rounds: rounds, Salt: []byte(m[3])}
	if m[4] != "" {
		p.Checksum = []byte(m[4])
	}
	return p, nil
}

func (bcryptScheme) render(p *ParameterSet) string {
	return fmt.Sprintf("%s%02d$%s%s", p.Ident, p.Rounds, p.Salt, p.Checksum)
}

// generate draws 16 random bytes for the salt so that the unused low bits of
// the final salt character are always zero.
func (bcryptScheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt := cloneBytes(d.Salt)
	if salt == nil {
		raw, err := randomBytes(bcryptRawSaltSize)
		if err != nil {
			return nil, err
		}
		salt = []byte(h64.BcryptEncoding.EncodeToString(raw))
	}
	return &ParameterSet{Ident: d.Ident, Rounds: d.DefaultRounds, Salt: salt}, nil
}

func (bcryptScheme) backend() *backend { return bcryptBackend }

// prepare truncates the secret to 72 bytes, or rejects it at hash time when
// the variant sets truncate_error.  NUL bytes are refused because C
// implementations stop reading the key at the first one.
func (bcryptScheme) prepare(d *Descriptor, secret string, _ *ParameterSet, verifying bool) ([]byte, error) {
	buf, err := encodeSecret(d.Encoding, secret)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		wipe(buf)
		return nil, fmt.Errorf("%w: bcrypt secrets cannot contain NUL bytes", ErrUnsupportedFeature)
	}
	if len(buf) > BcryptTruncateSize {
		if d.TruncateError && !verifying {
			n := len(buf)
			wipe(buf)
			return nil, fmt.Errorf("%w: bcrypt secret is %d bytes, limit is %d", ErrSizeLimit, n, BcryptTruncateSize)
		}
		wipe(buf[BcryptTruncateSize:])
		buf = buf[:BcryptTruncateSize]
	}
	return buf, nil
}

func (bcryptScheme) checkFeatures(p *ParameterSet, caps Capabilities) error {
	if !caps.Has(p.Ident) {
		return fmt.Errorf("%w: %s engine does not support %s hashes", ErrUnsupportedFeature, caps.Engine, p.Ident)
	}
	return nil
}

func (bcryptScheme) needsUpdate(d *Descriptor, p *ParameterSet) (bool, error) {
	return p.Ident != d.Ident || p.Rounds < d.DefaultRounds, nil
}

// eksblowfish computes the bcrypt checksum: the expensive key schedule
// followed by 64 encryptions of the magic text, of which 23 bytes are kept.
func eksblowfish(key []byte, ident string, cost int, salt []byte) ([]byte, error) {
	csalt, err := h64.BcryptEncoding.DecodeString(string(salt))
	if err != nil || len(csalt) != bcryptRawSaltSize {
		return nil, fmt.Errorf("%w: malformed bcrypt salt", ErrFormat)
	}

	ckey := make([]byte, 0, len(key)+1)
	ckey = append(ckey, key...)
	if ident != "$2$" {
		ckey = append(ckey, 0)
	}
	defer wipe(ckey)
	if len(ckey) == 0 {
		return nil, fmt.Errorf("%w: $2$ hashes cannot encode an empty secret", ErrUnsupportedFeature)
	}

	c, err := blowfish.NewSaltedCipher(ckey, csalt)
	if err != nil {
		return nil, err
	}
	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(ckey, c)
		blowfish.ExpandKey(csalt, c)
	}

	data := append([]byte{}, bcryptMagic...)
	for i := 0; i < len(data); i += blowfish.BlockSize {
		for j := 0; j < 64; j++ {
			c.Encrypt(data[i:i+blowfish.BlockSize], data[i:i+blowfish.BlockSize])
		}
	}
	return []byte(h64.BcryptEncoding.EncodeToString(data[:23])), nil
}

var blowfishEngine = EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
	return eksblowfish(secret, p.Ident, p.Rounds, p.Salt)
})

func bcryptVector(ident, checksum string) vector {
	return vector{
		feature: ident,
		secret:  []byte("test"),
		params: ParameterSet{
			Ident:    ident,
			Rounds:   bcrypt.MinCost,
			Salt:     []byte("......................"),
			Checksum: []byte(checksum),
		},
	}
}

var bcryptBackend = newBackend(string(SchemeBcrypt),
	[]engineConstructor{
		{name: "os_crypt", build: osCryptEngine(
			func(p *ParameterSet) string { return fmt.Sprintf("%s%02d$%s", p.Ident, p.Rounds, p.Salt) },
			func(out string) []byte {
				if len(out) < bcryptChecksumSize {
					return nil
				}
				return []byte(out[len(out)-bcryptChecksumSize:])
			},
			blowfishEngine,
		)},
		{name: "blowfish", build: builtinEngine(blowfishEngine)},
	},
	[]vector{
		bcryptVector("$2a$", "qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"),
	},
	[]vector{
		bcryptVector("$2$", "1O4gOrCYaqBG3o/4LnT2ykQUt1wbyju"),
		bcryptVector("$2b$", "qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"),
		bcryptVector("$2y$", "qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"),
	},
)
