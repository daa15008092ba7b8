package admincred

import (
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/teller/internal/pinhash"
	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
)

const testIterations = 1000

func TestVerifyAcceptsConfiguredSecret(test *testing.T) {
	test.Parallel()
	hasher, err := pinhash.New(testIterations)
	if err != nil {
		test.Fatalf("hasher init failed: %v", err)
	}
	credentialHash, err := hasher.Hash("7531")
	if err != nil {
		test.Fatalf("hash failed: %v", err)
	}
	verifier, err := New(credentialHash, hasher)
	if err != nil {
		test.Fatalf("verifier init failed: %v", err)
	}

	if err := verifier.Verify("7531"); err != nil {
		test.Fatalf("expected the configured secret to verify: %v", err)
	}
	if err := verifier.Verify("0000"); !errors.Is(err, ErrAdminCredential) {
		test.Fatalf("expected ErrAdminCredential, got %v", err)
	}
}

func TestNewRejectsOpenConfiguration(test *testing.T) {
	test.Parallel()
	hasher, err := pinhash.New(testIterations)
	if err != nil {
		test.Fatalf("hasher init failed: %v", err)
	}
	if _, err := New("", hasher); !errors.Is(err, teller.ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for empty hash, got %v", err)
	}
	if _, err := New("digest:salt", nil); !errors.Is(err, teller.ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil hasher, got %v", err)
	}
}

func TestVerifyWrapsMalformedHashErrors(test *testing.T) {
	test.Parallel()
	hasher, err := pinhash.New(testIterations)
	if err != nil {
		test.Fatalf("hasher init failed: %v", err)
	}
	verifier, err := New("not-a-stored-hash", hasher)
	if err != nil {
		test.Fatalf("verifier init failed: %v", err)
	}
	if err := verifier.Verify("1234"); !errors.Is(err, teller.ErrInvalidCredentialHash) {
		test.Fatalf("expected ErrInvalidCredentialHash, got %v", err)
	}
}
