// Package admincred gates the administrative reporting surface. The secret
// is never a hardcoded literal: configuration supplies a credential hash
// produced by the same hasher contract that protects account PINs.
package admincred

import (
	"errors"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
)

// ErrAdminCredential marks a rejected administrative secret.
var ErrAdminCredential = errors.New("invalid administrative credential")

// Verifier checks an operator-supplied secret against the configured hash.
type Verifier struct {
	credentialHash string
	hasher         teller.CredentialHasher
}

// New wires a Verifier. An empty configured hash is refused so a deployment
// cannot silently run with the admin surface open.
func New(credentialHash string, hasher teller.CredentialHasher) (*Verifier, error) {
	if credentialHash == "" {
		return nil, teller.WrapError("admincred", "config", "empty_hash", teller.ErrInvalidServiceConfig)
	}
	if hasher == nil {
		return nil, teller.WrapError("admincred", "config", "nil_hasher", teller.ErrInvalidServiceConfig)
	}
	return &Verifier{credentialHash: credentialHash, hasher: hasher}, nil
}

// Verify checks the secret, returning ErrAdminCredential on mismatch.
func (verifier *Verifier) Verify(secret string) error {
	matched, err := verifier.hasher.Verify(verifier.credentialHash, secret)
	if err != nil {
		return teller.WrapError("admincred", "credential", "verify", err)
	}
	if !matched {
		return ErrAdminCredential
	}
	return nil
}
