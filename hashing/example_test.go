package hashing_test

import (
	"fmt"
	"strings"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

func ExampleNew() {
	h, err := hashing.New(hashing.SchemeMD5Crypt, hashing.WithSalt("test"))
	if err != nil {
		panic(err)
	}
	hash, err := h.Hash("test")
	if err != nil {
		panic(err)
	}
	fmt.Println(hash)
	// Output: $1$test$pi/xDtU5WFVRqYS6BMU8X/
}

func ExampleDetectScheme() {
	for _, hash := range []string{
		"$2b$12$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga",
		"S:00940225DA9A7A14852BCE258A933252793DBD114C1D4E2A8B2D1CB3E4E6",
		"sha1$abcde$f513c4466c7991d917d0cc026829387f6cbf9f94",
		"plaintext",
	} {
		name, ok := hashing.DetectScheme(hash)
		fmt.Printf("%q %v\n", name, ok)
	}
	// Output:
	// "bcrypt" true
	// "oracle11" true
	// "django_salted_sha1" true
	// "" false
}

func ExampleHandler_Verify() {
	h, _ := hashing.New(hashing.SchemeOracle10)
	ok, err := h.Verify("tiger", "F894844C34402B67", hashing.WithUser("scott"))
	fmt.Println(ok, err)
	// Output: true <nil>
}

func ExampleHandler_Using() {
	strict, _ := hashing.New(hashing.SchemeBcrypt)
	if _, err := strict.Using(hashing.WithRounds(40)); err != nil {
		fmt.Println("strict:", err)
	}

	relaxed, _ := strict.Using(hashing.WithRelaxed(true), hashing.WithRounds(40))
	for _, c := range relaxed.Corrections() {
		fmt.Println("relaxed:", c)
	}
	// Output:
	// strict: hashing: parameter out of range: rounds 40 is above the maximum 31
	// relaxed: rounds: 40 is above the maximum 31, using 31
}

func ExampleDecodeType7() {
	secret, err := hashing.DecodeType7("04480E051A33490E")
	fmt.Printf("%q %v\n", secret, err)
	// Output: "secure " <nil>
}

func ExampleManager_VerifyAndUpdate() {
	m := hashing.NewManager(hashing.SchemeBcrypt)
	bcrypt, _ := hashing.New(hashing.SchemeBcrypt, hashing.WithRounds(4))
	md5, _ := hashing.New(hashing.SchemeMD5Crypt)
	_ = m.Register(hashing.SchemeBcrypt, bcrypt)
	_ = m.Register(hashing.SchemeMD5Crypt, md5)

	ok, newHash, err := m.VerifyAndUpdate("test", "$1$test$pi/xDtU5WFVRqYS6BMU8X/")
	fmt.Println(ok, strings.HasPrefix(newHash, "$2a$04$"), err)
	// Output: true true <nil>
}
