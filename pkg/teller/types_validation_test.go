package teller

import (
	"errors"
	"testing"
)

func TestNewAccountID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		input   string
		wantErr error
		wantVal string
	}{
		{name: "valid", input: "1234", wantVal: "1234"},
		{name: "trims whitespace", input: " 4321 ", wantVal: "4321"},
		{name: "too short", input: "123", wantErr: ErrInvalidAccountID},
		{name: "too long", input: "12345", wantErr: ErrInvalidAccountID},
		{name: "letters", input: "12a4", wantErr: ErrInvalidAccountID},
		{name: "empty", input: "", wantErr: ErrInvalidAccountID},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := NewAccountID(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.String() != tc.wantVal {
				t.Fatalf("expected %q, got %q", tc.wantVal, result.String())
			}
		})
	}
}

func TestNewPIN(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "valid", input: "0000"},
		{name: "valid nonzero", input: "9876"},
		{name: "short", input: "123", wantErr: ErrInvalidPINFormat},
		{name: "long", input: "12345", wantErr: ErrInvalidPINFormat},
		{name: "alpha", input: "abcd", wantErr: ErrInvalidPINFormat},
		{name: "spaced", input: "12 4", wantErr: ErrInvalidPINFormat},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewPIN(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewPositiveAmountCents(t *testing.T) {
	t.Parallel()
	if _, err := NewPositiveAmountCents(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := NewPositiveAmountCents(-5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	value, err := NewPositiveAmountCents(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 100 {
		t.Fatalf("expected 100, got %d", value)
	}
	if value.Negated() != -100 {
		t.Fatalf("expected -100, got %d", value.Negated())
	}
}

func TestNewBalanceCents(t *testing.T) {
	t.Parallel()
	if _, err := NewBalanceCents(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	zero, err := NewBalanceCents(0)
	if err != nil || zero != 0 {
		t.Fatalf("expected zero balance to be valid, got %d, %v", zero, err)
	}
}

func TestParseAmountCents(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{name: "whole", input: "100", want: 10000},
		{name: "one decimal", input: "25.5", want: 2550},
		{name: "two decimals", input: "0.07", want: 7},
		{name: "leading dot", input: ".50", want: 50},
		{name: "trailing dot", input: "12.", want: 1200},
		{name: "zero", input: "0", want: 0},
		{name: "three decimals", input: "1.005", wantErr: ErrInvalidAmount},
		{name: "not a number", input: "ten", wantErr: ErrInvalidAmount},
		{name: "negative", input: "-5", wantErr: ErrInvalidAmount},
		{name: "empty", input: "  ", wantErr: ErrInvalidAmount},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cents, err := ParseAmountCents(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cents.Int64() != tc.want {
				t.Fatalf("expected %d cents, got %d", tc.want, cents.Int64())
			}
		})
	}
}

func TestFormatAmountCents(t *testing.T) {
	t.Parallel()
	if got := FormatAmountCents(8550); got != "85.50" {
		t.Fatalf("expected 85.50, got %q", got)
	}
	if got := FormatAmountCents(-4000); got != "-40.00" {
		t.Fatalf("expected -40.00, got %q", got)
	}
	if got := FormatAmountCents(7); got != "0.07" {
		t.Fatalf("expected 0.07, got %q", got)
	}
}

func TestParseAccountType(t *testing.T) {
	t.Parallel()
	savings, err := ParseAccountType(" Savings ")
	if err != nil || savings != AccountTypeSavings {
		t.Fatalf("expected savings, got %v, %v", savings, err)
	}
	checking, err := ParseAccountType("checking")
	if err != nil || checking != AccountTypeChecking {
		t.Fatalf("expected checking, got %v, %v", checking, err)
	}
	if _, err := ParseAccountType("premium"); !errors.Is(err, ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
}

func TestParseTransactionKind(t *testing.T) {
	t.Parallel()
	for _, kind := range []TransactionKind{KindDeposit, KindWithdrawal, KindTransferOut, KindTransferIn} {
		parsed, err := ParseTransactionKind(kind.String())
		if err != nil || parsed != kind {
			t.Fatalf("expected %v to round trip, got %v, %v", kind, parsed, err)
		}
	}
	if _, err := ParseTransactionKind("refund"); !errors.Is(err, ErrInvalidTransactionKind) {
		t.Fatalf("expected ErrInvalidTransactionKind, got %v", err)
	}
}
