package hashing

import (
	"bytes"
	"fmt"
)

// ParameterSet is the decoded form of an encoded hash: every value the
// scheme's grammar carries, plus out-of-band context.
//
// Fields a scheme does not use are left at their zero value.  Checksum is
// nil for the configuration-only form (a hash string without its checksum).
// For text-based schemes Checksum holds the encoded checksum characters; for
// argon2 it holds the raw digest bytes, and Salt likewise holds raw bytes.
type ParameterSet struct {
	// Ident is the identifier prefix, e.g. "$1$", "$2a$", "sha1".
	Ident string

	// Salt is the salt as stored in the hash.
	Salt []byte

	// Offset is the integer salt used by Cisco type 7.
	Offset int

	// Rounds is the cost parameter: linear iterations for argon2 (t=),
	// log2 cost for bcrypt.
	Rounds int

	// MemoryCost is the argon2 memory cost in KiB.
	MemoryCost int

	// Parallelism is the argon2 lane count.
	Parallelism int

	// Type is the argon2 variant: "i", "d" or "id".
	Type string

	// Version is the argon2 version (0x10 or 0x13).
	Version int

	// Data is argon2 associated data.
	Data []byte

	// User is the out-of-band username for Cisco PIX/ASA and Oracle 10g.
	// It is never rendered.
	User string

	// Checksum is the checksum portion of the hash.
	Checksum []byte

	// ChecksumSize is the argon2 digest length in bytes.  Parse sets it from
	// the stored digest; generated parameter sets take the variant default.
	ChecksumSize int
}

// Clone returns a deep copy of p.
func (p *ParameterSet) Clone() *ParameterSet {
	c := *p
	c.Salt = cloneBytes(p.Salt)
	c.Data = cloneBytes(p.Data)
	c.Checksum = cloneBytes(p.Checksum)
	return &c
}

// Equal reports whether p and o carry the same rendered parameters.  The
// out-of-band User is ignored.
func (p *ParameterSet) Equal(o *ParameterSet) bool {
	return p.Ident == o.Ident &&
		bytes.Equal(p.Salt, o.Salt) &&
		p.Offset == o.Offset &&
		p.Rounds == o.Rounds &&
		p.MemoryCost == o.MemoryCost &&
		p.Parallelism == o.Parallelism &&
		p.Type == o.Type &&
		p.Version == o.Version &&
		bytes.Equal(p.Data, o.Data) &&
		bytes.Equal(p.Checksum, o.Checksum) &&
		p.ChecksumSize == o.ChecksumSize &&
		(p.Checksum == nil) == (o.Checksum == nil)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

// CostKind describes how a scheme interprets its rounds parameter.
type CostKind string

const (
	// CostLinear means rounds is an iteration count.
	CostLinear CostKind = "linear"
	// CostLog2 means the iteration count is 2^rounds.
	CostLog2 CostKind = "log2"
)

// Correction records a parameter value that the relaxed policy replaced
// instead of rejecting.
type Correction struct {
	Param  string
	Given  any
	Used   any
	Reason string
}

func (c Correction) String() string {
	return fmt.Sprintf("%s: %v %s, using %v", c.Param, c.Given, c.Reason, c.Used)
}

// policy decides whether out-of-range values are errors or corrections.
type policy struct {
	relaxed bool
}

// normInt checks that v lies within [lo, hi].  A negative hi means no upper
// bound.  Under the strict policy a violation is an [ErrParameterRange];
// under the relaxed policy v is clamped and the returned Correction
// describes the change.  A nil Correction and nil error mean v was valid.
func (pol policy) normInt(param string, v, lo, hi int) (int, *Correction, error) {
	var used int
	var reason string
	switch {
	case v < lo:
		used, reason = lo, fmt.Sprintf("is below the minimum %d", lo)
	case hi >= 0 && v > hi:
		used, reason = hi, fmt.Sprintf("is above the maximum %d", hi)
	default:
		return v, nil, nil
	}
	if !pol.relaxed {
		return v, nil, fmt.Errorf("%w: %s %d %s", ErrParameterRange, param, v, reason)
	}
	return used, &Correction{Param: param, Given: v, Used: used, Reason: reason}, nil
}

// normSalt validates a caller supplied salt against the scheme's size and
// charset.  Oversized salts are truncated under the relaxed policy; short
// salts and bad characters are always errors.
func (pol policy) normSalt(d *Descriptor, salt []byte) ([]byte, *Correction, error) {
	if d.SaltChars != "" {
		for _, c := range salt {
			if bytes.IndexByte([]byte(d.SaltChars), c) < 0 {
				return nil, nil, fmt.Errorf("%w: salt contains invalid character %q", ErrParameterRange, c)
			}
		}
	}
	if len(salt) < d.MinSaltSize {
		return nil, nil, fmt.Errorf("%w: salt too small (%d < %d)", ErrParameterRange, len(salt), d.MinSaltSize)
	}
	if d.MaxSaltSize >= 0 && len(salt) > d.MaxSaltSize {
		if !pol.relaxed {
			return nil, nil, fmt.Errorf("%w: salt too large (%d > %d)", ErrParameterRange, len(salt), d.MaxSaltSize)
		}
		used := cloneBytes(salt[:d.MaxSaltSize])
		return used, &Correction{
			Param:  "salt",
			Given:  string(salt),
			Used:   string(used),
			Reason: fmt.Sprintf("is longer than %d", d.MaxSaltSize),
		}, nil
	}
	return cloneBytes(salt), nil, nil
}
