package hashing_test

import (
	"errors"
	"testing"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

func TestNTHash_Vectors(t *testing.T) {
	checkVectors(t, mustNew(t, hashing.SchemeNTHash), []hashVector{
		{secret: "passphrase", hash: "$3$$7f8fe03093cc84b267b109625f6bbf4b"},
		{secret: "passphrase", hash: "$NT$7f8fe03093cc84b267b109625f6bbf4b"},
		{secret: "password", hash: "$3$$8846f7eaee8fb117ad06bdd830b7586c"},
		{secret: "", hash: "$3$$31d6cfe0d16ae931b73c59d7e0c089c0"},
		{secret: "päss", hash: "$3$$411b68984d6b19bbb302455798320a06"},
		{secret: "密码", hash: "$NT$f900556f89880c4084e3c644c6c20b9c"},
	})
}

func TestNTHash_UpperCaseChecksum(t *testing.T) {
	h := mustNew(t, hashing.SchemeNTHash)
	ok, err := h.Verify("passphrase", "$3$$7F8FE03093CC84B267B109625F6BBF4B")
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	got, err := h.Genhash("passphrase", "$3$$7F8FE03093CC84B267B109625F6BBF4B")
	if err != nil {
		t.Fatalf("Genhash: %v", err)
	}
	if want := "$3$$7f8fe03093cc84b267b109625f6bbf4b"; got != want {
		t.Errorf("Genhash = %q, want %q", got, want)
	}
}

func TestNTHash_Ident(t *testing.T) {
	h := mustNew(t, hashing.SchemeNTHash, hashing.WithIdent("NT"))
	hash, err := h.Hash("passphrase")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if want := "$NT$7f8fe03093cc84b267b109625f6bbf4b"; hash != want {
		t.Errorf("Hash = %q, want %q", hash, want)
	}

	cfg, err := h.Genconfig()
	if err != nil {
		t.Fatalf("Genconfig: %v", err)
	}
	if cfg != "$NT$" {
		t.Errorf("Genconfig = %q, want %q", cfg, "$NT$")
	}
	if _, err := h.Verify("passphrase", cfg); !errors.Is(err, hashing.ErrFormat) {
		t.Errorf("Verify(%q): expected ErrFormat, got %v", cfg, err)
	}

	if _, err := hashing.New(hashing.SchemeNTHash, hashing.WithIdent("$1$")); !errors.Is(err, hashing.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
}

func TestNTHash_Malformed(t *testing.T) {
	h := mustNew(t, hashing.SchemeNTHash)
	for _, hash := range []string{
		"$3$$7f8fe03093cc84b267b109625f6bbfxb",
		"$3$$7f8fe03093cc84b267b109625f6bbf4",
		"$3$7f8fe03093cc84b267b109625f6bbf4b",
		"7f8fe03093cc84b267b109625f6bbf4b",
	} {
		if _, err := h.Verify("passphrase", hash); !errors.Is(err, hashing.ErrFormat) {
			t.Errorf("Verify(%q): expected ErrFormat, got %v", hash, err)
		}
	}
}
