package teller

import (
	"fmt"
	"strings"
)

// AmountCents is an integer currency in cents. Operation inputs are strictly
// positive; transaction records carry the signed value.
type AmountCents int64

// AccountID identifies an account: a four digit numeric string.
type AccountID struct {
	value string
}

// PIN is a four digit numeric credential supplied by the account holder.
type PIN struct {
	value string
}

// AccountType defines the account flavor fixed at creation.
type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
)

// String returns the canonical type name.
func (accountType AccountType) String() string {
	return string(accountType)
}

// TransactionKind enumerates ledger record kinds.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindWithdrawal  TransactionKind = "withdrawal"
	KindTransferOut TransactionKind = "transfer_out"
	KindTransferIn  TransactionKind = "transfer_in"
)

// String returns the canonical kind name.
func (kind TransactionKind) String() string {
	return string(kind)
}

// A single immutable line in an account's history. Amounts are negative for
// money leaving the account and positive for money entering it.
type Transaction struct {
	Kind        TransactionKind
	AmountCents AmountCents
	AtUnixUTC   int64
}

// Account is the stored record for one account holder. Transactions are
// append-only in chronological order; LoginAttempts is bounded by the
// configured maximum and reset on successful authentication.
type Account struct {
	AccountID      string
	CredentialHash string
	BalanceCents   int64
	Type           AccountType
	Transactions   []Transaction
	LoginAttempts  int
}

// NewAccountID validates and normalizes an account identifier.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if !isFourDigits(trimmed) {
		return AccountID{}, fmt.Errorf("%w: must be four digits", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// NewPIN validates a credential against the four digit numeric format.
func NewPIN(raw string) (PIN, error) {
	if !isFourDigits(raw) {
		return PIN{}, fmt.Errorf("%w: must be four digits", ErrInvalidPINFormat)
	}
	return PIN{value: raw}, nil
}

// String returns the raw credential. Never persist this value.
func (pin PIN) String() string {
	return pin.value
}

// NewPositiveAmountCents validates an operation amount and ensures it is
// strictly positive.
func NewPositiveAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return AmountCents(raw), nil
}

// NewBalanceCents validates a balance and ensures it is non-negative.
func NewBalanceCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return AmountCents(raw), nil
}

// Negated flips the sign of the amount.
func (amount AmountCents) Negated() AmountCents {
	return -amount
}

// Int64 returns the raw cent value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// ParseAccountType maps a canonical type name to an AccountType.
func ParseAccountType(raw string) (AccountType, error) {
	switch AccountType(strings.ToLower(strings.TrimSpace(raw))) {
	case AccountTypeSavings:
		return AccountTypeSavings, nil
	case AccountTypeChecking:
		return AccountTypeChecking, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, raw)
}

// ParseTransactionKind maps a canonical kind name to a TransactionKind.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	switch TransactionKind(raw) {
	case KindDeposit:
		return KindDeposit, nil
	case KindWithdrawal:
		return KindWithdrawal, nil
	case KindTransferOut:
		return KindTransferOut, nil
	case KindTransferIn:
		return KindTransferIn, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionKind, raw)
}

// ParseAmountCents converts decimal money text ("25.5", "100") to cents.
// At most two fractional digits are accepted.
func ParseAmountCents(raw string) (AmountCents, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	whole, fraction, _ := strings.Cut(text, ".")
	if whole == "" {
		whole = "0"
	}
	if len(fraction) > 2 {
		return 0, fmt.Errorf("%w: more than two fractional digits", ErrInvalidAmount)
	}
	if len(whole) > 15 {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	for len(fraction) < 2 {
		fraction += "0"
	}
	cents := int64(0)
	for _, digit := range whole + fraction {
		if digit < '0' || digit > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		cents = cents*10 + int64(digit-'0')
	}
	return AmountCents(cents), nil
}

// FormatAmountCents renders cents as decimal money text with two places.
func FormatAmountCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func isFourDigits(candidate string) bool {
	if len(candidate) != 4 {
		return false
	}
	for _, digit := range candidate {
		if digit < '0' || digit > '9' {
			return false
		}
	}
	return true
}
