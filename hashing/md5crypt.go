package hashing

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/apr1_crypt"
	"github.com/GehirnInc/crypt/md5_crypt"

	"github.com/hasbyte1/go-passlib-utils/h64"
)

const (
	md5CryptTag    = "$1$"
	aprMD5CryptTag = "$apr1$"

	md5CryptRounds       = 1000
	md5CryptMaxSaltSize  = 8
	md5CryptChecksumSize = 22
)

// md5CryptTranspose is the byte order in which the final digest is encoded.
var md5CryptTranspose = []int{12, 6, 0, 13, 7, 1, 14, 8, 2, 15, 9, 3, 5, 10, 4, 11}

// md5CryptScheme implements both MD5-crypt and its Apache variant.  They
// differ only in the tag mixed into the digest and written as the prefix.
type md5CryptScheme struct {
	tag string
}

func (s md5CryptScheme) name() SchemeName {
	if s.tag == aprMD5CryptTag {
		return SchemeAprMD5Crypt
	}
	return SchemeMD5Crypt
}

func (s md5CryptScheme) descriptor() Descriptor {
	return Descriptor{
		Name:            s.name(),
		Settings:        []string{"salt", "salt_size"},
		Ident:           s.tag,
		Idents:          []string{s.tag},
		SaltChars:       h64.Alphabet,
		MinSaltSize:     0,
		MaxSaltSize:     md5CryptMaxSaltSize,
		DefaultSaltSize: md5CryptMaxSaltSize,
		ChecksumSize:    md5CryptChecksumSize,
	}
}

func (s md5CryptScheme) identify(hash string) bool {
	return strings.HasPrefix(hash, s.tag)
}

// parse accepts "<tag><salt>", "<tag><salt>$" and "<tag><salt>$<checksum>".
func (s md5CryptScheme) parse(hash string) (*ParameterSet, error) {
	rest, ok := strings.CutPrefix(hash, s.tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s hash must start with %q", ErrFormat, s.name(), s.tag)
	}
	salt, chk, _ := strings.Cut(rest, "$")
	if len(salt) > md5CryptMaxSaltSize || !h64.Valid(salt) {
		return nil, fmt.Errorf("%w: malformed %s salt", ErrFormat, s.name())
	}
	p := &ParameterSet{Ident: s.tag, Salt: []byte(salt)}
	if chk != "" {
		if len(chk) != md5CryptChecksumSize || !h64.Valid(chk) {
			return nil, fmt.Errorf("%w: malformed %s checksum", ErrFormat, s.name())
		}
		p.Checksum = []byte(chk)
	}
	return p, nil
}

func (s md5CryptScheme) render(p *ParameterSet) string {
	if p.Checksum == nil {
		return s.tag + string(p.Salt)
	}
	return s.tag + string(p.Salt) + "$" + string(p.Checksum)
}

func (s md5CryptScheme) generate(d *Descriptor) (*ParameterSet, error) {
	salt, err := saltFor(d)
	if err != nil {
		return nil, err
	}
	return &ParameterSet{Ident: s.tag, Salt: salt}, nil
}

func (s md5CryptScheme) backend() *backend {
	if s.tag == aprMD5CryptTag {
		return aprMD5CryptBackend
	}
	return md5CryptBackend
}

// md5Crypt computes the 22 character MD5-crypt checksum of secret.
func md5Crypt(secret, salt []byte, tag string) []byte {
	if len(salt) > md5CryptMaxSaltSize {
		salt = salt[:md5CryptMaxSaltSize]
	}

	h := md5.New()
	h.Write(secret)
	h.Write(salt)
	h.Write(secret)
	alt := h.Sum(nil)

	h.Reset()
	h.Write(secret)
	h.Write([]byte(tag))
	h.Write(salt)
	for n := len(secret); n > 0; n -= md5.Size {
		h.Write(alt[:min(n, md5.Size)])
	}
	// A set bit contributes a NUL, a clear bit the first secret byte.
	for i := len(secret); i > 0; i >>= 1 {
		if i&1 != 0 {
			h.Write([]byte{0})
		} else {
			h.Write(secret[:1])
		}
	}
	sum := h.Sum(nil)
	wipe(alt)

	for i := 0; i < md5CryptRounds; i++ {
		h.Reset()
		if i&1 != 0 {
			h.Write(secret)
		} else {
			h.Write(sum)
		}
		if i%3 != 0 {
			h.Write(salt)
		}
		if i%7 != 0 {
			h.Write(secret)
		}
		if i&1 != 0 {
			h.Write(sum)
		} else {
			h.Write(secret)
		}
		sum = h.Sum(sum[:0])
	}
	return []byte(h64.EncodeTransposed(sum, md5CryptTranspose))
}

func md5CryptBuiltin(tag string) Engine {
	return EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
		return md5Crypt(secret, p.Salt, tag), nil
	})
}

// gehirnEngine wraps a GehirnInc crypter.  The crypter takes the salt as a
// modular crypt configuration string and returns the full hash.
func gehirnEngine(tag string, ctor func() crypt.Crypter) func() (Engine, error) {
	return func() (Engine, error) {
		c := ctor()
		return EngineFunc(func(secret []byte, p *ParameterSet) ([]byte, error) {
			out, err := c.Generate(secret, []byte(tag+string(p.Salt)+"$"))
			if err != nil {
				return nil, err
			}
			return afterLastDollar(out), nil
		}), nil
	}
}

func md5CryptVector(tag, secret, salt, checksum string) vector {
	return vector{
		secret: []byte(secret),
		params: ParameterSet{Ident: tag, Salt: []byte(salt), Checksum: []byte(checksum)},
	}
}

var md5CryptBackend = newBackend(string(SchemeMD5Crypt),
	[]engineConstructor{
		{name: "os_crypt", build: osCryptEngine(
			func(p *ParameterSet) string { return md5CryptTag + string(p.Salt) + "$" },
			afterLastDollar,
			md5CryptBuiltin(md5CryptTag),
		)},
		{name: "gehirn", build: gehirnEngine(md5CryptTag, md5_crypt.New)},
		{name: "builtin", build: builtinEngine(md5CryptBuiltin(md5CryptTag))},
	},
	[]vector{
		md5CryptVector(md5CryptTag, "test", "test", "pi/xDtU5WFVRqYS6BMU8X/"),
		md5CryptVector(md5CryptTag, "", "dOHYPKoP", "tnxS1T8Q6VVn3kpV8cN6o."),
	},
	nil,
)

var aprMD5CryptBackend = newBackend(string(SchemeAprMD5Crypt),
	[]engineConstructor{
		{name: "gehirn", build: gehirnEngine(aprMD5CryptTag, apr1_crypt.New)},
		{name: "builtin", build: builtinEngine(md5CryptBuiltin(aprMD5CryptTag))},
	},
	[]vector{
		md5CryptVector(aprMD5CryptTag, "myPassword", "r31.....", "HqJZimcKQFAMYayBlzkrA/"),
		md5CryptVector(aprMD5CryptTag, "", "bzYrOHUx", "ziZaRs7O8UL9.XnHMR7k41"),
	},
	nil,
)
