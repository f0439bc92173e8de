package credential

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"

	"github.com/cassauth/authservicesapi/internal/apperr"
)

func TestGenerateSalt_LengthAndCharset(t *testing.T) {
	for i := 0; i < 20; i++ {
		salt, err := GenerateSalt()
		if err != nil {
			t.Fatalf("GenerateSalt: %v", err)
		}
		if len(salt) < saltMinLen || len(salt) > saltMaxLen {
			t.Fatalf("len(salt) = %d, want between %d and %d", len(salt), saltMinLen, saltMaxLen)
		}
		for _, r := range salt {
			if r < saltMinCodepoint || r > saltMaxCodepoint {
				t.Fatalf("salt contains out-of-range codepoint %d", r)
			}
		}
	}
}

func TestGenerateSalt_Unique(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if a == b {
		t.Error("two consecutive salts were identical")
	}
}

func TestHashPassword_DeterministicForSameInputs(t *testing.T) {
	params := DefaultParams()
	h1, err := HashPassword("argon2", "pwd-equivalent", "somesalt", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("argon2", "pwd-equivalent", "somesalt", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 != h2 {
		t.Error("HashPassword is not deterministic for identical inputs")
	}
}

func TestHashPassword_DifferentSaltsDifferentHashes(t *testing.T) {
	params := DefaultParams()
	h1, _ := HashPassword("argon2", "pwd-equivalent", "saltone", params)
	h2, _ := HashPassword("argon2", "pwd-equivalent", "salttwo", params)
	if h1 == h2 {
		t.Error("different salts produced the same hash")
	}
}

func TestHashPassword_UnknownAlgorithm(t *testing.T) {
	_, err := HashPassword("md5", "pwd", "salt", DefaultParams())
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want wrapping apperr.ErrValidation", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	params := DefaultParams()
	hash, err := HashPassword("argon2", "correct-equivalent", "thesalt", params)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("argon2", "correct-equivalent", "thesalt", hash, params)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("VerifyPassword rejected the correct password equivalent")
	}

	ok, err = VerifyPassword("argon2", "wrong-equivalent", "thesalt", hash, params)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Error("VerifyPassword accepted an incorrect password equivalent")
	}
}

func TestGenerateSessionKey_LengthAndEntropy(t *testing.T) {
	a, err := GenerateSessionKey()
	if err != nil {
		t.Fatalf("GenerateSessionKey: %v", err)
	}
	// hex-encoded 24 bytes = 48 characters = 192 bits, above the 128-bit floor.
	if len(a) != sessionKeyBytes*2 {
		t.Fatalf("len(key) = %d, want %d", len(a), sessionKeyBytes*2)
	}
	if strings.Contains(a, " ") {
		t.Error("session key contains whitespace")
	}

	b, err := GenerateSessionKey()
	if err != nil {
		t.Fatalf("GenerateSessionKey: %v", err)
	}
	if a == b {
		t.Error("two consecutive session keys were identical")
	}
}

// clientPasswordEquivalent reproduces what the browser client computes
// before a credential ever reaches this service: PBKDF2 over the raw
// password, salted with "user@org", 10000 iterations.
func clientPasswordEquivalent(password, user, org string) string {
	key := pbkdf2.Key([]byte(password), []byte(user+"@"+org), 10000, 32, sha256.New)
	return string(key)
}

func TestHashPassword_AgainstClientComputedEquivalent(t *testing.T) {
	equivalent := clientPasswordEquivalent("hunter2", "alice", "example.net")
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	hash, err := HashPassword("argon2", equivalent, salt, DefaultParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword("argon2", equivalent, salt, hash, DefaultParams())
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("VerifyPassword rejected a correctly re-derived client password equivalent")
	}
}
