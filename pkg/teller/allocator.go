package teller

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// AllocateAccountID draws random four digit identifiers (1000-9999) until one
// not reported taken is found. Retries are bounded so a saturated id space
// fails with ErrIDSpaceExhausted instead of spinning forever.
func AllocateAccountID(isTaken func(accountID string) bool) (string, error) {
	if isTaken == nil {
		return "", fmt.Errorf("%w: taken predicate is nil", ErrInvalidServiceConfig)
	}
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		drawn, err := rand.Int(rand.Reader, big.NewInt(accountIDSpan))
		if err != nil {
			return "", WrapError(operationCreateAccount, "account_id", "random", err)
		}
		candidate := strconv.FormatInt(drawn.Int64()+accountIDFloor, 10)
		if !isTaken(candidate) {
			return candidate, nil
		}
	}
	return "", ErrIDSpaceExhausted
}
