package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/hasbyte1/go-passlib-utils/descrypt"
	"github.com/hasbyte1/go-passlib-utils/h64"
)

const (
	lowerHex     = "0123456789abcdef"
	alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	djangoDefaultSaltSize = 5
)

// djangoFields splits "<ident>$<salt>$<checksum>".
func djangoFields(hash, ident string) (salt, chk string, err error) {
	rest, ok := strings.CutPrefix(hash, ident+"$")
	if !ok {
		return "", "", fmt.Errorf("%w: hash must start with %q", ErrFormat, ident+"$")
	}
	salt, chk, ok = strings.Cut(rest, "$")
	if !ok || strings.Contains(chk, "$") {
		return "", "", fmt.Errorf("%w: expected %s$<salt>$<checksum>", ErrFormat, ident)
	}
	return salt, chk, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Salted SHA1 / MD5
// ──────────────────────────────────────────────────────────────────────────────

// djangoSaltedScheme implements Django's legacy "sha1$salt$hex" and
// "md5$salt$hex" formats: one digest of the salt followed by the secret.
type djangoSaltedScheme struct {
	sha1 bool
}

func (s djangoSaltedScheme) ident() string {
	if s.sha1 {
		return "sha1"
	}
	return "md5"
}

func (s djangoSaltedScheme) checksumSize() int {
	if s.sha1 {
		return sha1.Size * 2
	}
	return md5.Size * 2
}

func (s djangoSaltedScheme) descriptor() Descriptor {
	d := Descriptor{
		Name:            SchemeDjangoSaltedMD5,
		Settings:        []string{"salt", "salt_size"},
		Ident:           s.ident(),
		Idents:          []string{s.ident()},
		SaltChars:       lowerHex,
		MinSaltSize:     0,
		MaxSaltSize:     -1,
		DefaultSaltSize: djangoDefaultSaltSize,
		ChecksumSize:    s.checksumSize(),
	}
	if s.sha1 {
		d.Name = SchemeDjangoSaltedSHA1
	}
	return d
}

func (s djangoSaltedScheme) identify(hash string) bool {
	return strings.HasPrefix(hash, s.ident()+"$")
}

// parse accepts alphanumeric salts, which older Django releases generated,
// although new salts are lower-case hex.
func (s djangoSaltedScheme) parse(hash string) (*ParameterSet, error) {
	salt, chk, err := djangoFields(hash, s.ident())
	if err != nil {
		return nil, err
	}
	if !h64.ValidIn(salt, alphanumeric) {
		return nil, fmt.Errorf("%w: malformed django salt", ErrFormat)
	}
	if chk != "" && (len(chk) != s.checksumSize() || !h64.ValidIn(chk, lowerHex)) {
		return nil, fmt.Errorf("%w: django %s checksum must be %d lower-case hex characters",
			ErrFormat, s.ident(), s.checksumSize())
	}
	p := &ParameterSet{Ident: s.ident(), Salt: []byte(salt)}
	// An all-zero checksum is the configuration-only form written by render.
	if strings.Trim(chk, "0") != "" {
		p.Checksum = []byte(chk)
	}
	return p, nil
}

func (s djangoSaltedScheme) render(p *ParameterSet) string {
	chk := string(p.Checksum)
	if p.Checksum == nil {
		chk = strings.Repeat("0", s.checksumSize())
	}
	return s.ident() + "$" + string(p.Salt) + "$" + chk
}

func (s djangoSaltedScheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt, err := saltFor(d)
	if err != nil {
		return nil, err
	}
	return &ParameterSet{Ident: s.ident(), Salt: salt}, nil
}

func (s djangoSaltedScheme) backend() *backend {
	if s.sha1 {
		return djangoSHA1Backend
	}
	return djangoMD5Backend
}

func saltedDigest(newHash func() hash.Hash) Engine {
	return EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
		h := newHash()
		h.Write(p.Salt)
		h.Write(secret)
		return []byte(hex.EncodeToString(h.Sum(nil))), nil
	})
}

func djangoVector(checksum string) []vector {
	return []vector{{
		secret: []byte("password"),
		params: ParameterSet{Salt: []byte("abcde"), Checksum: []byte(checksum)},
	}}
}

var djangoSHA1Backend = newBackend(string(SchemeDjangoSaltedSHA1),
	[]engineConstructor{{name: "builtin", build: builtinEngine(saltedDigest(sha1.New))}},
	djangoVector("f513c4466c7991d917d0cc026829387f6cbf9f94"),
	nil,
)

var djangoMD5Backend = newBackend(string(SchemeDjangoSaltedMD5),
	[]engineConstructor{{name: "builtin", build: builtinEngine(saltedDigest(md5.New))}},
	djangoVector("871108235bfefede288620664f44ada8"),
	nil,
)

// ──────────────────────────────────────────────────────────────────────────────
// DES-crypt wrapper
// ──────────────────────────────────────────────────────────────────────────────

const djangoDESCryptIdent = "crypt"

// djangoDESCryptScheme implements "crypt$<salt>$<des_crypt hash>".  Only the
// first two salt characters are used, and they must repeat as the first two
// characters of the embedded des_crypt hash.
type djangoDESCryptScheme struct{}

func (djangoDESCryptScheme) descriptor() Descriptor {
	return Descriptor{
		Name:            SchemeDjangoDESCrypt,
		Settings:        []string{"salt", "salt_size"},
		Ident:           djangoDESCryptIdent,
		Idents:          []string{djangoDESCryptIdent},
		SaltChars:       h64.Alphabet,
		MinSaltSize:     descrypt.SaltSize,
		MaxSaltSize:     -1,
		DefaultSaltSize: djangoDefaultSaltSize,
		ChecksumSize:    descrypt.HashSize,
		TruncateSize:    descrypt.MaxKeySize,
	}
}

func (djangoDESCryptScheme) identify(hash string) bool {
	return strings.HasPrefix(hash, djangoDESCryptIdent+"$")
}

// djangoDESCryptStub is the checksum rendered for the configuration-only
// form, after the two salt characters.
var djangoDESCryptStub = strings.Repeat(".", descrypt.HashSize-descrypt.SaltSize)

func (djangoDESCryptScheme) parse(hash string) (*ParameterSet, error) {
	salt, chk, err := djangoFields(hash, djangoDESCryptIdent)
	if err != nil {
		return nil, err
	}
	if len(salt) < descrypt.SaltSize || !h64.Valid(salt) {
		return nil, fmt.Errorf("%w: django des_crypt salt must be at least %d hash64 characters", ErrFormat, descrypt.SaltSize)
	}
	p := &ParameterSet{Ident: djangoDESCryptIdent, Salt: []byte(salt)}
	if chk == "" || chk == salt[:descrypt.SaltSize]+djangoDESCryptStub {
		return p, nil
	}
	if len(chk) != descrypt.HashSize || !h64.Valid(chk) {
		return nil, fmt.Errorf("%w: django des_crypt checksum must be %d hash64 characters", ErrFormat, descrypt.HashSize)
	}
	if chk[:descrypt.SaltSize] != salt[:descrypt.SaltSize] {
		return nil, fmt.Errorf("%w: first two characters of salt and checksum must match", ErrFormat)
	}
	p.Checksum = []byte(chk)
	return p, nil
}

func (djangoDESCryptScheme) render(p *ParameterSet) string {
	chk := string(p.Checksum)
	if p.Checksum == nil {
		chk = string(p.Salt[:descrypt.SaltSize]) + djangoDESCryptStub
	}
	return djangoDESCryptIdent + "$" + string(p.Salt) + "$" + chk
}

func (djangoDESCryptScheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt, err := saltFor(d)
	if err != nil {
		return nil, err
	}
	return &ParameterSet{Ident: djangoDESCryptIdent, Salt: salt}, nil
}

func (djangoDESCryptScheme) backend() *backend { return desCryptBackend }

// desCryptBuiltin returns the full 13 character des_crypt hash.
var desCryptBuiltin = EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
	out, err := descrypt.Crypt(secret, string(p.Salt[:descrypt.SaltSize]))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
})

var desCryptBackend = newBackend("des_crypt",
	[]engineConstructor{
		{name: "os_crypt", build: osCryptEngine(
			func(p *ParameterSet) string { return string(p.Salt[:descrypt.SaltSize]) },
			func(out string) []byte { return []byte(out) },
			desCryptBuiltin,
		)},
		{name: "builtin", build: builtinEngine(desCryptBuiltin)},
	},
	[]vector{
		{secret: []byte("password"), params: ParameterSet{Salt: []byte("ab"), Checksum: []byte("abJnggxhB/yWI")}},
	},
	nil,
)

// ──────────────────────────────────────────────────────────────────────────────
// Disabled account marker
// ──────────────────────────────────────────────────────────────────────────────

const djangoDisabledMarker = "!"

// djangoDisabledScheme claims the "!" marker Django stores for accounts
// without a usable password.  Hashing yields the marker and every
// verification fails.
type djangoDisabledScheme struct{}

func (djangoDisabledScheme) descriptor() Descriptor {
	return Descriptor{Name: SchemeDjangoDisabled}
}

func (djangoDisabledScheme) identify(hash string) bool { return hash == djangoDisabledMarker }

func (s djangoDisabledScheme) parse(hash string) (*ParameterSet, error) {
	if !s.identify(hash) {
		return nil, fmt.Errorf("%w: django_disabled hash must be %q", ErrFormat, djangoDisabledMarker)
	}
	return &ParameterSet{}, nil
}

func (djangoDisabledScheme) render(*ParameterSet) string { return djangoDisabledMarker }

func (djangoDisabledScheme) generate(*Descriptor) (*ParameterSet, error) { return &ParameterSet{}, nil }

func (djangoDisabledScheme) backend() *backend { return nil }
