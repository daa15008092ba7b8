package teller

// CredentialHasher derives and verifies the salted credential hash stored on
// an account. The stored form is opaque to every other component.
type CredentialHasher interface {
	// Hash derives a fresh credential hash from a PIN, generating a random salt.
	Hash(pin string) (string, error)
	// Verify recomputes the derivation for a candidate PIN against the stored
	// hash and reports whether the digests match. The comparison must not be
	// timing-sensitive. A malformed stored hash is an error, not a mismatch.
	Verify(credentialHash string, candidate string) (bool, error)
}
