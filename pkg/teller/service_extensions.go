package teller

import (
	"context"
	"sort"
)

// Statement is the mini-statement view: the most recent transactions plus
// the current balance.
type Statement struct {
	AccountID    string
	Transactions []Transaction
	BalanceCents int64
}

// SummaryLine is one account's row in the all-accounts summary.
type SummaryLine struct {
	AccountID    string
	Type         AccountType
	BalanceCents int64
}

// Summary aggregates every account for the administrative overview.
type Summary struct {
	AccountCount      int
	TotalBalanceCents int64
	Lines             []SummaryLine
}

// AccountReport is the detailed administrative view of a single account.
type AccountReport struct {
	AccountID     string
	Type          AccountType
	BalanceCents  int64
	LoginAttempts int
	Transactions  []Transaction
}

// Statement returns the last limit transactions (newest last, preserving
// ledger order) and the current balance. A non-positive limit uses
// DefaultStatementLimit.
func (service *Service) Statement(ctx context.Context, accountID AccountID, limit int) (Statement, error) {
	if limit <= 0 {
		limit = DefaultStatementLimit
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return Statement{}, err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return Statement{}, ErrAccountNotFound
	}
	transactions := account.Transactions
	if len(transactions) > limit {
		transactions = transactions[len(transactions)-limit:]
	}
	recent := make([]Transaction, len(transactions))
	copy(recent, transactions)
	return Statement{
		AccountID:    account.AccountID,
		Transactions: recent,
		BalanceCents: account.BalanceCents,
	}, nil
}

// Balance returns the current balance in cents.
func (service *Service) Balance(ctx context.Context, accountID AccountID) (AmountCents, error) {
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return 0, ErrAccountNotFound
	}
	return AmountCents(account.BalanceCents), nil
}

// SummaryReport enumerates every account with its type and balance, sorted
// by account id for stable output.
func (service *Service) SummaryReport(ctx context.Context) (Summary, error) {
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		AccountCount: len(accounts),
		Lines:        make([]SummaryLine, 0, len(accounts)),
	}
	for _, account := range accounts {
		summary.TotalBalanceCents += account.BalanceCents
		summary.Lines = append(summary.Lines, SummaryLine{
			AccountID:    account.AccountID,
			Type:         account.Type,
			BalanceCents: account.BalanceCents,
		})
	}
	sort.Slice(summary.Lines, func(left, right int) bool {
		return summary.Lines[left].AccountID < summary.Lines[right].AccountID
	})
	return summary, nil
}

// Report returns the detailed administrative view of one account, including
// its failed-attempt counter and full transaction history.
func (service *Service) Report(ctx context.Context, accountID AccountID) (AccountReport, error) {
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return AccountReport{}, err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return AccountReport{}, ErrAccountNotFound
	}
	history := make([]Transaction, len(account.Transactions))
	copy(history, account.Transactions)
	return AccountReport{
		AccountID:     account.AccountID,
		Type:          account.Type,
		BalanceCents:  account.BalanceCents,
		LoginAttempts: account.LoginAttempts,
		Transactions:  history,
	}, nil
}
