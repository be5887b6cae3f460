package hashing

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/md4"
	"golang.org/x/text/encoding/unicode"
)

const nthashChecksumSize = 32

// nthashScheme implements the Windows NT hash: MD4 of the UTF-16LE secret,
// written as lower-case hex behind "$3$$" (FreeBSD) or "$NT$".  Secrets are
// always encoded as UTF-16LE; the encoding option has no effect.
type nthashScheme struct{}

func (nthashScheme) descriptor() Descriptor {
	return Descriptor{
		Name:         SchemeNTHash,
		Settings:     []string{"ident"},
		Ident:        "$3$$",
		Idents:       []string{"$3$$", "$NT$"},
		ChecksumSize: nthashChecksumSize,
	}
}

func (s nthashScheme) identify(hash string) bool {
	_, err := s.parse(hash)
	return err == nil
}

// parse accepts "<ident><32 hex>" in either case, and the bare ident as the
// configuration-only form.
func (nthashScheme) parse(hash string) (*ParameterSet, error) {
	for _, ident := range []string{"$3$$", "$NT$"} {
		chk, ok := strings.CutPrefix(hash, ident)
		if !ok {
			continue
		}
		p := &ParameterSet{Ident: ident}
		if chk == "" {
			return p, nil
		}
		if len(chk) != nthashChecksumSize || !isHex(chk) {
			return nil, fmt.Errorf("%w: nthash checksum must be %d hex characters", ErrFormat, nthashChecksumSize)
		}
		p.Checksum = []byte(strings.ToLower(chk))
		return p, nil
	}
	return nil, fmt.Errorf("%w: nthash hash must start with \"$3$$\" or \"$NT$\"", ErrFormat)
}

func (nthashScheme) render(p *ParameterSet) string { return p.Ident + string(p.Checksum) }

func (nthashScheme) generate(d *Descriptor) (*ParameterSet, error) {
	return &ParameterSet{Ident: d.Ident}, nil
}

func (nthashScheme) backend() *backend { return nthashBackend }

func (nthashScheme) prepare(_ *Descriptor, secret string, _ *ParameterSet, _ bool) ([]byte, error) {
	return utf16LE(secret)
}

func utf16LE(secret string) ([]byte, error) {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: nthash secret is not valid UTF-8", ErrUnsupportedFeature)
	}
	return out, nil
}

func nthashChecksum(secret []byte, _ *ParameterSet) ([]byte, error) {
	h := md4.New()
	h.Write(secret)
	return []byte(hex.EncodeToString(h.Sum(nil))), nil
}

func nthashVector(secret, checksum string) vector {
	in, err := utf16LE(secret)
	if err != nil {
		panic(err)
	}
	return vector{secret: in, params: ParameterSet{Ident: "$3$$", Checksum: []byte(checksum)}}
}

var nthashBackend = newBackend(string(SchemeNTHash),
	[]engineConstructor{
		{name: "builtin", build: builtinEngine(EngineFunc(nthashChecksum))},
	},
	[]vector{
		nthashVector("password", "8846f7eaee8fb117ad06bdd830b7586c"),
		nthashVector("", "31d6cfe0d16ae931b73c59d7e0c089c0"),
	},
	nil,
)
