package hashing

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
)

const upperHex = "0123456789ABCDEF"

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

func upperHexBytes(b []byte) []byte {
	return []byte(strings.ToUpper(hex.EncodeToString(b)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Oracle 10g
// ──────────────────────────────────────────────────────────────────────────────

const oracle10ChecksumSize = 16

// oracle10Magic is the DES key of the first pass.
var oracle10Magic = []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

// oracle10Scheme implements the unsalted Oracle 10g hash.  The account name
// is mixed in and must be supplied with [WithUser]; without it Hash and
// Verify fail with [ErrInvalidOption].  Secrets are always
// upper-cased and encoded as UTF-16BE; the encoding option has no effect.
type oracle10Scheme struct{}

func (oracle10Scheme) descriptor() Descriptor {
	return Descriptor{Name: SchemeOracle10, ChecksumSize: oracle10ChecksumSize}
}

func (oracle10Scheme) identify(hash string) bool {
	return len(hash) == oracle10ChecksumSize && isHex(hash)
}

func (s oracle10Scheme) parse(hash string) (*ParameterSet, error) {
	if !s.identify(hash) {
		return nil, fmt.Errorf("%w: oracle10 hash must be %d hex characters", ErrFormat, oracle10ChecksumSize)
	}
	return &ParameterSet{Checksum: []byte(strings.ToUpper(hash))}, nil
}

func (oracle10Scheme) render(p *ParameterSet) string { return string(p.Checksum) }

func (oracle10Scheme) generate(*Descriptor) (*ParameterSet, error) { return &ParameterSet{}, nil }

func (oracle10Scheme) backend() *backend { return oracle10Backend }

func (oracle10Scheme) prepare(_ *Descriptor, secret string, p *ParameterSet, _ bool) ([]byte, error) {
	if p.User == "" {
		return nil, fmt.Errorf("%w: oracle10 requires the account name; pass WithUser", ErrInvalidOption)
	}
	return oracle10Input(p.User, secret)
}

// oracle10Input upper-cases user+secret and encodes it as UTF-16BE.
func oracle10Input(user, secret string) ([]byte, error) {
	upper := cases.Upper(language.Und).String(user + secret)
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(upper))
	if err != nil {
		return nil, fmt.Errorf("%w: oracle10 secret is not valid UTF-8", ErrUnsupportedFeature)
	}
	return out, nil
}

// desCBCLast encrypts data, zero padded to the block size, in CBC mode with
// a zero IV and returns the last ciphertext block.
func desCBCLast(key, data []byte) ([]byte, error) {
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	n := (len(data) + des.BlockSize - 1) / des.BlockSize * des.BlockSize
	buf := make([]byte, n)
	copy(buf, data)
	defer wipe(buf)
	cipher.NewCBCEncrypter(block, make([]byte, des.BlockSize)).CryptBlocks(buf, buf)
	return cloneBytes(buf[n-des.BlockSize:]), nil
}

func oracle10Checksum(input []byte, _ *ParameterSet) ([]byte, error) {
	key, err := desCBCLast(oracle10Magic, input)
	if err != nil {
		return nil, err
	}
	sum, err := desCBCLast(key, input)
	if err != nil {
		return nil, err
	}
	return upperHexBytes(sum), nil
}

func oracle10Vector(user, secret, checksum string) vector {
	in, err := oracle10Input(user, secret)
	if err != nil {
		panic(err)
	}
	return vector{secret: in, params: ParameterSet{Checksum: []byte(checksum)}}
}

var oracle10Backend = newBackend(string(SchemeOracle10),
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(oracle10Checksum))},
	},
	[]vector{
		oracle10Vector("SYSTEM", "MANAGER", "D4DF7931AB130E37"),
		oracle10Vector("scott", "tiger", "F894844C34402B67"),
	},
	nil,
)

// ──────────────────────────────────────────────────────────────────────────────
// Oracle 11g
// ──────────────────────────────────────────────────────────────────────────────

const (
	oracle11Prefix       = "S:"
	oracle11SaltSize     = 20
	oracle11ChecksumSize = 40
)

// oracle11Scheme implements "S:<40 hex sha1><20 hex salt>".
type oracle11Scheme struct{}

func (oracle11Scheme) descriptor() Descriptor {
	return Descriptor{
		Name:            SchemeOracle11,
		Settings:        []string{"salt"},
		SaltChars:       upperHex,
		MinSaltSize:     oracle11SaltSize,
		MaxSaltSize:     oracle11SaltSize,
		DefaultSaltSize: oracle11SaltSize,
		ChecksumSize:    oracle11ChecksumSize,
	}
}

func (s oracle11Scheme) identify(hash string) bool {
	_, err := s.parse(hash)
	return err == nil
}

func (oracle11Scheme) parse(hash string) (*ParameterSet, error) {
	body, ok := strings.CutPrefix(hash, oracle11Prefix)
	if !ok || len(body) != oracle11ChecksumSize+oracle11SaltSize || !isHex(body) {
		return nil, fmt.Errorf("%w: oracle11 hash must be %q followed by 60 hex characters", ErrFormat, oracle11Prefix)
	}
	body = strings.ToUpper(body)
	p := &ParameterSet{Salt: []byte(body[oracle11ChecksumSize:])}
	// A zero checksum is the configuration-only form written by render.
	if chk := body[:oracle11ChecksumSize]; strings.Trim(chk, "0") != "" {
		p.Checksum = []byte(chk)
	}
	return p, nil
}

// render writes a zero checksum for the configuration-only form.
func (oracle11Scheme) render(p *ParameterSet) string {
	chk := string(p.Checksum)
	if p.Checksum == nil {
		chk = strings.Repeat("0", oracle11ChecksumSize)
	}
	return oracle11Prefix + chk + string(p.Salt)
}

func (oracle11Scheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt := cloneBytes(d.Salt)
	if salt == nil {
		raw, err := randomBytes(oracle11SaltSize / 2)
		if err != nil {
			return nil, err
		}
		salt = upperHexBytes(raw)
	}
	return &ParameterSet{Salt: salt}, nil
}

func (oracle11Scheme) backend() *backend { return oracle11Backend }

func oracle11Checksum(secret []byte, p *ParameterSet) ([]byte, error) {
	salt, err := hex.DecodeString(string(p.Salt))
	if err != nil {
		return nil, fmt.Errorf("%w: oracle11 salt is not hex", ErrFormat)
	}
	h := sha1.New()
	h.Write(secret)
	h.Write(salt)
	return upperHexBytes(h.Sum(nil)), nil
}

var oracle11Backend = newBackend(string(SchemeOracle11),
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(oracle11Checksum))},
	},
	[]vector{
		{
			secret: []byte("tiger"),
			params: ParameterSet{
				Salt:     []byte("4C1D4E2A8B2D1CB3E4E6"),
				Checksum: []byte("00940225DA9A7A14852BCE258A933252793DBD11"),
			},
		},
	},
	nil,
)
