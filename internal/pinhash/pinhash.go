// Package pinhash implements the teller credential hasher with
// PBKDF2-HMAC-SHA256. The stored form is "<hex_digest>:<hex_salt>", which
// keeps snapshots produced by the predecessor system verifiable as-is.
package pinhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used for stored credentials.
	DefaultIterations = 100000

	saltLengthBytes = 16
	digestKeyLength = 32
	encodedParts    = 2
	partDelimiter   = ":"
)

// Hasher derives salted PBKDF2 digests. The zero work factor is invalid;
// construct through New.
type Hasher struct {
	iterations int
}

// New returns a Hasher with the given work factor. Tests may pass a small
// factor; production wiring uses DefaultIterations.
func New(iterations int) (*Hasher, error) {
	if iterations <= 0 {
		return nil, teller.WrapError("pinhash", "config", "iterations", teller.ErrInvalidServiceConfig)
	}
	return &Hasher{iterations: iterations}, nil
}

// Hash derives a credential hash from a PIN with a fresh random salt.
func (hasher *Hasher) Hash(pin string) (string, error) {
	saltBytes := make([]byte, saltLengthBytes)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", teller.WrapError("pinhash", "salt", "random", err)
	}
	return hasher.hashWithSalt(pin, hex.EncodeToString(saltBytes)), nil
}

// Verify recomputes the derivation for a candidate PIN against the stored
// hash. The digest comparison is constant time.
func (hasher *Hasher) Verify(credentialHash string, candidate string) (bool, error) {
	parts := strings.Split(credentialHash, partDelimiter)
	if len(parts) != encodedParts {
		return false, fmt.Errorf("%w: expected digest:salt", teller.ErrInvalidCredentialHash)
	}
	storedDigest, salt := parts[0], parts[1]
	if _, err := hex.DecodeString(storedDigest); err != nil {
		return false, fmt.Errorf("%w: digest is not hex", teller.ErrInvalidCredentialHash)
	}
	recomputed := hasher.hashWithSalt(candidate, salt)
	recomputedDigest := strings.Split(recomputed, partDelimiter)[0]
	return subtle.ConstantTimeCompare([]byte(storedDigest), []byte(recomputedDigest)) == 1, nil
}

func (hasher *Hasher) hashWithSalt(pin string, salt string) string {
	digest := pbkdf2.Key([]byte(pin), []byte(salt), hasher.iterations, digestKeyLength, sha256.New)
	return hex.EncodeToString(digest) + partDelimiter + salt
}
