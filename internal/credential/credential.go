// Package credential implements password hashing and session-key
// generation: the Credential Engine. It never sees a raw password
// (callers pass the client-computed PBKDF2 password-equivalent), and it
// never compares secrets except in constant time.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"

	"github.com/cassauth/authservicesapi/internal/apperr"
)

const (
	saltMinLen       = 50
	saltMaxLen       = 60
	saltMinCodepoint = 32
	saltMaxCodepoint = 126

	sessionKeyBytes = 24 // 192 bits, comfortably over the 128-bit floor
)

// Params tunes the argon2 hash. The original service fixes t=5 and
// leaves everything else at a reasonable default; we carry that
// forward as the package default rather than a magic literal scattered
// across call sites.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams matches original_source/passwordutils.py's
// hashPassword(algo='argon2', params={'t': 5}).
func DefaultParams() Params {
	return Params{Time: 5, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

// GenerateSalt returns a random string of 50-60 printable ASCII
// characters (codepoints 32-126), matching
// original_source/passwordutils.py's generateSalt.
func GenerateSalt() (string, error) {
	lenSpan := big.NewInt(int64(saltMaxLen - saltMinLen + 1))
	n, err := rand.Int(rand.Reader, lenSpan)
	if err != nil {
		return "", fmt.Errorf("generating salt length: %w", err)
	}
	length := saltMinLen + int(n.Int64())

	codepointSpan := big.NewInt(int64(saltMaxCodepoint - saltMinCodepoint + 1))
	out := make([]byte, length)
	for i := range out {
		c, err := rand.Int(rand.Reader, codepointSpan)
		if err != nil {
			return "", fmt.Errorf("generating salt byte: %w", err)
		}
		out[i] = byte(saltMinCodepoint + int(c.Int64()))
	}
	return string(out), nil
}

// HashPassword hashes passwordEquivalent (the client's PBKDF2 output)
// with salt using algo, returning a hex-encoded digest. "argon2" is
// the only supported algorithm; anything else is ErrValidation, same
// as the original's ValueError on an unrecognized algo.
func HashPassword(algo, passwordEquivalent, salt string, params Params) (string, error) {
	switch algo {
	case "argon2":
		sum := argon2.IDKey([]byte(passwordEquivalent), []byte(salt), params.Time, params.Memory, params.Threads, params.KeyLen)
		return hex.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("%w: unknown hash algorithm %q", apperr.ErrValidation, algo)
	}
}

// VerifyPassword recomputes the hash for passwordEquivalent and
// compares it to storedHash in constant time.
func VerifyPassword(algo, passwordEquivalent, salt, storedHash string, params Params) (bool, error) {
	computed, err := HashPassword(algo, passwordEquivalent, salt, params)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1, nil
}

// GenerateSessionKey returns an opaque, high-entropy, hex-encoded
// session key suitable for use as a single-use-revocable bearer token.
func GenerateSessionKey() (string, error) {
	buf := make([]byte, sessionKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
