package hashing

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/hasbyte1/go-passlib-utils/h64"
)

// ──────────────────────────────────────────────────────────────────────────────
// Cisco PIX / ASA
// ──────────────────────────────────────────────────────────────────────────────

const (
	ciscoPIXTruncateSize = 16
	ciscoASATruncateSize = 32
	ciscoChecksumSize    = 16

	// ciscoASAUserCutoff is the secret length from which ASA stops appending
	// the username.
	ciscoASAUserCutoff = 28
)

// ciscoSpoiler is appended to oversized secrets during verification so the
// digest cannot match any stored hash.
var ciscoSpoiler = bytes.Repeat([]byte{0xFF}, 32)

// ciscoPIXScheme implements the unsalted PIX "encrypted" hash and its ASA
// variant.  The username, when there is one, is supplied per call with
// [WithUser] and is never part of the hash string.
type ciscoPIXScheme struct {
	asa bool
}

func (s ciscoPIXScheme) descriptor() Descriptor {
	d := Descriptor{
		Name:         SchemeCiscoPIX,
		ChecksumSize: ciscoChecksumSize,
		TruncateSize: ciscoPIXTruncateSize,
	}
	if s.asa {
		d.Name = SchemeCiscoASA
		d.TruncateSize = ciscoASATruncateSize
	}
	return d
}

func (ciscoPIXScheme) identify(hash string) bool {
	return len(hash) == ciscoChecksumSize && h64.Valid(hash)
}

func (s ciscoPIXScheme) parse(hash string) (*ParameterSet, error) {
	if !s.identify(hash) {
		return nil, fmt.Errorf("%w: %s hash must be %d hash64 characters", ErrFormat, s.descriptor().Name, ciscoChecksumSize)
	}
	return &ParameterSet{Checksum: []byte(hash)}, nil
}

func (ciscoPIXScheme) render(p *ParameterSet) string { return string(p.Checksum) }

func (ciscoPIXScheme) generate(*Descriptor) (*ParameterSet, error) { return &ParameterSet{}, nil }

func (ciscoPIXScheme) backend() *backend { return ciscoPIXBackend }

// prepare builds the MD5 input: secret, the username repeated or cut to four
// bytes, NUL padding to 16 (or 32 for ASA past 16 bytes), and for oversized
// secrets under verification the spoiler.  Oversized secrets are rejected at
// hash time.
func (s ciscoPIXScheme) prepare(d *Descriptor, secret string, p *ParameterSet, verifying bool) ([]byte, error) {
	raw, err := encodeSecret(d.Encoding, secret)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)

	var spoil []byte
	if len(raw) > d.TruncateSize {
		if !verifying {
			return nil, fmt.Errorf("%w: %s allows at most %d bytes", ErrSizeLimit, d.Name, d.TruncateSize)
		}
		spoil = append(cloneBytes(raw), ciscoSpoiler...)
	}

	buf := append([]byte{}, raw...)
	if p.User != "" && (!s.asa || len(raw) < ciscoASAUserCutoff) {
		buf = append(buf, repeatTo([]byte(p.User), 4)...)
	}
	size := ciscoPIXTruncateSize
	if s.asa && len(buf) > ciscoPIXTruncateSize {
		size = ciscoASATruncateSize
	}
	buf = padTo(buf, size)
	if spoil != nil {
		buf = append(buf, spoil...)
		wipe(spoil)
	}
	return buf, nil
}

// repeatTo repeats b until it is exactly n bytes long.
func repeatTo(b []byte, n int) []byte {
	out := make([]byte, 0, n+len(b))
	for len(out) < n {
		out = append(out, b...)
	}
	return out[:n]
}

// padTo NUL pads or truncates b to n bytes.
func padTo(b []byte, n int) []byte {
	if len(b) >= n {
		wipe(b[n:])
		return b[:n]
	}
	return append(b, make([]byte, n-len(b))...)
}

// ciscoPIXChecksum digests the prepared buffer, drops every fourth byte and
// encodes the remaining twelve.
func ciscoPIXChecksum(buf []byte, _ *ParameterSet) ([]byte, error) {
	sum := md5.Sum(buf)
	kept := make([]byte, 0, 12)
	for i, c := range sum {
		if i%4 != 3 {
			kept = append(kept, c)
		}
	}
	return []byte(h64.Encode(kept)), nil
}

var ciscoPIXBackend = newBackend("cisco_pix",
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(ciscoPIXChecksum))},
	},
	[]vector{
		{secret: padTo([]byte("cisco"), ciscoPIXTruncateSize), params: ParameterSet{Checksum: []byte("2KFQnbNIdI.2KYOU")}},
	},
	nil,
)

// ──────────────────────────────────────────────────────────────────────────────
// Cisco type 7
// ──────────────────────────────────────────────────────────────────────────────

// ciscoType7Key is XORed against the secret starting at the salt offset.
const ciscoType7Key = "dsfd;kfoA,.iyewrkldJKDHSUBsgvca69834ncxv9873254k;fg87"

const (
	ciscoType7MaxSalt      = 52
	ciscoType7GeneratedMax = 15
)

// ciscoType7Scheme implements the reversible IOS "type 7" encoding: a two
// digit decimal offset followed by the XORed secret in upper-case hex.
type ciscoType7Scheme struct{}

func (ciscoType7Scheme) descriptor() Descriptor {
	return Descriptor{
		Name:        SchemeCiscoType7,
		Settings:    []string{"salt"},
		IntSalt:     true,
		SaltOffset:  -1,
		MinSaltSize: 0,
		MaxSaltSize: ciscoType7MaxSalt,
	}
}

func (s ciscoType7Scheme) identify(hash string) bool {
	_, err := s.parse(hash)
	return err == nil
}

// parse accepts lower-case hex and normalises it to upper case.
func (ciscoType7Scheme) parse(hash string) (*ParameterSet, error) {
	if len(hash) < 2 {
		return nil, fmt.Errorf("%w: cisco_type7 hash too short", ErrFormat)
	}
	if hash[0] < '0' || hash[0] > '9' || hash[1] < '0' || hash[1] > '9' {
		return nil, fmt.Errorf("%w: cisco_type7 hash must start with a two digit offset", ErrFormat)
	}
	offset, _ := strconv.Atoi(hash[:2])
	if offset > ciscoType7MaxSalt {
		return nil, fmt.Errorf("%w: cisco_type7 offset %d must be in [0, %d]", ErrParameterRange, offset, ciscoType7MaxSalt)
	}
	p := &ParameterSet{Offset: offset}
	if chk := strings.ToUpper(hash[2:]); chk != "" {
		if len(chk)%2 != 0 {
			return nil, fmt.Errorf("%w: cisco_type7 checksum has odd length", ErrFormat)
		}
		if _, err := hex.DecodeString(chk); err != nil {
			return nil, fmt.Errorf("%w: cisco_type7 checksum is not hex", ErrFormat)
		}
		p.Checksum = []byte(chk)
	}
	return p, nil
}

func (ciscoType7Scheme) render(p *ParameterSet) string {
	return fmt.Sprintf("%02d%s", p.Offset, p.Checksum)
}

func (ciscoType7Scheme) generate(d *Descriptor) (*ParameterSet, error) {
	if d.SaltOffset >= 0 {
		return &ParameterSet{Offset: d.SaltOffset}, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(ciscoType7GeneratedMax+1))
	if err != nil {
		return nil, fmt.Errorf("hashing: failed to generate salt: %w", err)
	}
	return &ParameterSet{Offset: int(n.Int64())}, nil
}

func (ciscoType7Scheme) backend() *backend { return ciscoType7Backend }

// ciscoType7Cipher XORs data with the key starting at offset.  Applying it
// twice with the same offset returns the input.
func ciscoType7Cipher(data []byte, offset int) []byte {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = c ^ ciscoType7Key[(offset+i)%len(ciscoType7Key)]
	}
	return out
}

func ciscoType7Checksum(secret []byte, p *ParameterSet) ([]byte, error) {
	return []byte(strings.ToUpper(hex.EncodeToString(ciscoType7Cipher(secret, p.Offset)))), nil
}

// DecodeType7 recovers the plaintext from a Cisco type 7 string.
func DecodeType7(hash string) (string, error) {
	p, err := ciscoType7Scheme{}.parse(hash)
	if err != nil {
		return "", err
	}
	raw, _ := hex.DecodeString(string(p.Checksum))
	return string(ciscoType7Cipher(raw, p.Offset)), nil
}

var ciscoType7Backend = newBackend(string(SchemeCiscoType7),
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(ciscoType7Checksum))},
	},
	[]vector{
		{secret: []byte("cisco"), params: ParameterSet{Offset: 4, Checksum: []byte("5802150C2E")}},
	},
	nil,
)
