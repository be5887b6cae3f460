package hashing_test

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

// testBcryptCost is the minimum bcrypt work factor.  Used in unit tests only
// so the test suite runs quickly.  Production code should use DefaultBcryptCost.
const testBcryptCost = bcrypt.MinCost // 4

func newTestBcrypt(t *testing.T, opts ...hashing.Option) *hashing.Handler {
	t.Helper()
	return mustNew(t, hashing.SchemeBcrypt, append([]hashing.Option{hashing.WithRounds(testBcryptCost)}, opts...)...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Known answers
// ──────────────────────────────────────────────────────────────────────────────

func TestBcrypt_Vectors(t *testing.T) {
	checkVectors(t, newTestBcrypt(t), []hashVector{
		{secret: "test", hash: "$2a$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"},
		{secret: "test", hash: "$2b$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"},
		{secret: "test", hash: "$2y$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"},
		{secret: "test", hash: "$2$04$......................1O4gOrCYaqBG3o/4LnT2ykQUt1wbyju"},
		{secret: "U*U", hash: "$2a$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"},
		{secret: "", hash: "$2a$05$CCCCCCCCCCCCCCCCCCCCC.7uG0VCzI2bS7j6ymqJi9CdcdxiRTWNy"},
		{secret: "allmine", hash: "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"},
		{
			secret: "012345678901234567890123456789012345678901234567890123456",
			hash:   "$2a$10$XajjQvNhvvRt5GSeFk1xFe5l47dONXg781AmZtd869sO8zfsHuw7C",
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Interoperability with golang.org/x/crypto/bcrypt
// ──────────────────────────────────────────────────────────────────────────────

func TestBcrypt_HashAcceptedByXCrypto(t *testing.T) {
	h := newTestBcrypt(t, hashing.WithIdent("2b"))
	for _, secret := range []string{"password123", "", "ünïcödé", strings.Repeat("a", 72)} {
		hash, err := h.Hash(secret)
		if err != nil {
			t.Fatalf("Hash(%q): %v", secret, err)
		}
		if !strings.HasPrefix(hash, "$2b$04$") {
			t.Fatalf("unexpected hash %q", hash)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
			t.Errorf("x/crypto rejected %q for %q: %v", hash, secret, err)
		}
	}
}

func TestBcrypt_VerifiesXCryptoHash(t *testing.T) {
	h := newTestBcrypt(t)
	for _, secret := range []string{"password123", "", "ünïcödé"} {
		raw, err := bcrypt.GenerateFromPassword([]byte(secret), testBcryptCost)
		if err != nil {
			t.Fatalf("GenerateFromPassword: %v", err)
		}
		ok, err := h.Verify(secret, string(raw))
		if err != nil || !ok {
			t.Errorf("Verify(%q, %q) = %v, %v", secret, raw, ok, err)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────────────────────────────────

func TestBcrypt_Defaults(t *testing.T) {
	d := mustNew(t, hashing.SchemeBcrypt).Descriptor()
	if d.DefaultRounds != hashing.DefaultBcryptCost {
		t.Errorf("default rounds = %d, want %d", d.DefaultRounds, hashing.DefaultBcryptCost)
	}
	if d.Ident != "$2a$" {
		t.Errorf("default ident = %q, want $2a$", d.Ident)
	}
	if d.RoundsCost != hashing.CostLog2 {
		t.Errorf("rounds cost = %q, want log2", d.RoundsCost)
	}
}

func TestBcrypt_RoundsRange(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost - 1, 0, bcrypt.MaxCost + 1} {
		if _, err := hashing.New(hashing.SchemeBcrypt, hashing.WithRounds(cost)); !errors.Is(err, hashing.ErrParameterRange) {
			t.Errorf("cost %d: expected ErrParameterRange, got %v", cost, err)
		}
	}
	if _, err := hashing.New(hashing.SchemeBcrypt, hashing.WithTimeCost(5)); err != nil {
		t.Errorf("time_cost alias: %v", err)
	}
}

func TestBcrypt_IdentForms(t *testing.T) {
	for _, ident := range []string{"2a", "2b", "$2y$", "2"} {
		h := newTestBcrypt(t, hashing.WithIdent(ident))
		want := "$" + strings.Trim(ident, "$") + "$"
		if got := h.Descriptor().Ident; got != want {
			t.Errorf("WithIdent(%q) = %q, want %q", ident, got, want)
		}
	}
	if _, err := hashing.New(hashing.SchemeBcrypt, hashing.WithIdent("2x")); !errors.Is(err, hashing.ErrInvalidOption) {
		t.Errorf("ident 2x: expected ErrInvalidOption, got %v", err)
	}
}

func TestBcrypt_FixedSalt(t *testing.T) {
	h := newTestBcrypt(t, hashing.WithSalt("......................"))
	got, err := h.Hash("test")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if want := "$2a$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"; got != want {
		t.Errorf("Hash = %q, want %q", got, want)
	}

	if _, err := hashing.New(hashing.SchemeBcrypt, hashing.WithSalt("short")); !errors.Is(err, hashing.ErrParameterRange) {
		t.Errorf("short salt: expected ErrParameterRange, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Secret handling
// ──────────────────────────────────────────────────────────────────────────────

func TestBcrypt_TruncatesAt72Bytes(t *testing.T) {
	h := newTestBcrypt(t)
	long := strings.Repeat("x", hashing.BcryptTruncateSize)
	hash, err := h.Hash(long)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := h.Verify(long+"ignored", hash)
	if err != nil || !ok {
		t.Errorf("bytes past 72 should be ignored: %v, %v", ok, err)
	}
}

func TestBcrypt_TruncateError(t *testing.T) {
	h := newTestBcrypt(t, hashing.WithTruncateError(true))
	long := strings.Repeat("x", hashing.BcryptTruncateSize+1)
	if _, err := h.Hash(long); !errors.Is(err, hashing.ErrSizeLimit) {
		t.Errorf("expected ErrSizeLimit, got %v", err)
	}
	hash, err := h.Hash(long[:hashing.BcryptTruncateSize])
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	// Verification still truncates so existing hashes keep working.
	if ok, err := h.Verify(long, hash); err != nil || !ok {
		t.Errorf("Verify = %v, %v", ok, err)
	}
}

func TestBcrypt_NULByteRejected(t *testing.T) {
	h := newTestBcrypt(t)
	if _, err := h.Hash("pass\x00word"); !errors.Is(err, hashing.ErrUnsupportedFeature) {
		t.Errorf("expected ErrUnsupportedFeature, got %v", err)
	}
}

func TestBcrypt_MaxSecretSize(t *testing.T) {
	h := newTestBcrypt(t)
	huge := strings.Repeat("x", hashing.MaxSecretSize+1)
	if _, err := h.Hash(huge); !errors.Is(err, hashing.ErrSizeLimit) {
		t.Errorf("Hash: expected ErrSizeLimit, got %v", err)
	}
	if _, err := h.Verify(huge, "$2a$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty"); !errors.Is(err, hashing.ErrSizeLimit) {
		t.Errorf("Verify: expected ErrSizeLimit, got %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Parsing and metadata
// ──────────────────────────────────────────────────────────────────────────────

func TestBcrypt_Malformed(t *testing.T) {
	h := newTestBcrypt(t)
	cases := map[string]error{
		"":                                  hashing.ErrFormat,
		"$2a$4$......................":      hashing.ErrFormat,
		"$2c$04$......................":     hashing.ErrFormat,
		"$2a$04$.....................":      hashing.ErrFormat,
		"$2a$04$......................qiOQ": hashing.ErrFormat,
		"$2a$03$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty": hashing.ErrParameterRange,
		"$2a$32$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty": hashing.ErrParameterRange,
	}
	for hash, want := range cases {
		if _, err := h.Verify("test", hash); !errors.Is(err, want) {
			t.Errorf("Verify(%q): expected %v, got %v", hash, want, err)
		}
	}
	if _, err := h.Verify("test", "$2a$04$......................"); !errors.Is(err, hashing.ErrFormat) {
		t.Errorf("config string: expected ErrFormat, got %v", err)
	}
}

func TestBcrypt_NeedsUpdate(t *testing.T) {
	h := mustNew(t, hashing.SchemeBcrypt, hashing.WithRounds(10))
	cases := map[string]bool{
		"$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga": false,
		"$2a$12$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga": false,
		"$2a$04$......................qiOQjkB8hxU8OzRhS.GhRMa4VUnkPty": true,
		"$2b$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga": true,
	}
	for hash, want := range cases {
		got, err := h.NeedsUpdate(hash)
		if err != nil {
			t.Fatalf("NeedsUpdate(%q): %v", hash, err)
		}
		if got != want {
			t.Errorf("NeedsUpdate(%q) = %v, want %v", hash, got, want)
		}
	}
}

func TestBcrypt_Info(t *testing.T) {
	info, err := newTestBcrypt(t).Info("$2b$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Scheme != hashing.SchemeBcrypt {
		t.Errorf("scheme = %q", info.Scheme)
	}
	if info.Params["ident"] != "$2b$" || info.Params["rounds"] != 10 || info.Params["salt"] != "XajjQvNhvvRt5GSeFk1xFe" {
		t.Errorf("unexpected params %v", info.Params)
	}
}

func TestBcrypt_ParseRender(t *testing.T) {
	h := newTestBcrypt(t)
	const hash = "$2y$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"
	p, err := h.Parse(hash)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Ident != "$2y$" || p.Rounds != 5 || string(p.Salt) != "CCCCCCCCCCCCCCCCCCCCC." {
		t.Errorf("unexpected parameters %+v", p)
	}
	if got := h.Render(p); got != hash {
		t.Errorf("Render = %q, want %q", got, hash)
	}
}
