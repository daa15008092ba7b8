package teller

import "context"

// Service contains the balance-mutating domain logic over a Store. Every
// operation loads the snapshot, validates fully before touching any balance,
// applies all in-memory mutations, and persists with a single Save call, so
// a committed snapshot never holds half of a transfer.
//
// Authentication is the collaborator's responsibility: callers are expected
// to hold a session token from AuthManager.Authenticate for the account
// whose balance they mutate (a transfer destination only needs to exist).
type Service struct {
	store  Store
	hasher CredentialHasher
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, hasher CredentialHasher, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, WrapError("service", "config", "nil_store", ErrInvalidServiceConfig)
	}
	if hasher == nil {
		return nil, WrapError("service", "config", "nil_hasher", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, WrapError("service", "config", "nil_clock", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, hasher: hasher, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateAccount allocates a fresh account id, hashes the PIN, and persists a
// new account with an empty history. Returns the new account id.
func (service *Service) CreateAccount(ctx context.Context, pin PIN, accountType AccountType, initialBalanceCents AmountCents) (string, error) {
	newAccountID, operationError := service.createAccount(ctx, pin, accountType, initialBalanceCents)
	service.logOperation(ctx, OperationLog{
		Operation:   operationCreateAccount,
		AccountID:   newAccountID,
		AmountCents: initialBalanceCents,
		Error:       operationError,
	})
	return newAccountID, operationError
}

func (service *Service) createAccount(ctx context.Context, pin PIN, accountType AccountType, initialBalanceCents AmountCents) (string, error) {
	if !isFourDigits(pin.String()) {
		return "", ErrInvalidPINFormat
	}
	if _, err := ParseAccountType(accountType.String()); err != nil {
		return "", err
	}
	if initialBalanceCents < 0 {
		return "", ErrInvalidAmount
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return "", err
	}
	newAccountID, err := AllocateAccountID(func(candidate string) bool {
		_, taken := accounts[candidate]
		return taken
	})
	if err != nil {
		return "", err
	}
	credentialHash, err := service.hasher.Hash(pin.String())
	if err != nil {
		return "", WrapError(operationCreateAccount, "credential", "hash", err)
	}
	accounts[newAccountID] = &Account{
		AccountID:      newAccountID,
		CredentialHash: credentialHash,
		BalanceCents:   initialBalanceCents.Int64(),
		Type:           accountType,
		Transactions:   []Transaction{},
		LoginAttempts:  0,
	}
	if err := service.store.Save(ctx, accounts); err != nil {
		return "", err
	}
	return newAccountID, nil
}

// Deposit increases the balance and appends a positive Deposit record.
// Returns the new balance in cents.
func (service *Service) Deposit(ctx context.Context, accountID AccountID, amount AmountCents) (AmountCents, error) {
	newBalance, operationError := service.deposit(ctx, accountID, amount)
	service.logOperation(ctx, OperationLog{
		Operation:   operationDeposit,
		AccountID:   accountID.String(),
		AmountCents: amount,
		Error:       operationError,
	})
	return newBalance, operationError
}

func (service *Service) deposit(ctx context.Context, accountID AccountID, amount AmountCents) (AmountCents, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return 0, ErrAccountNotFound
	}
	account.BalanceCents += amount.Int64()
	account.Transactions = append(account.Transactions, Transaction{
		Kind:        KindDeposit,
		AmountCents: amount,
		AtUnixUTC:   service.nowFn(),
	})
	if err := service.store.Save(ctx, accounts); err != nil {
		return 0, err
	}
	return AmountCents(account.BalanceCents), nil
}

// Withdraw decreases the balance and appends a negative Withdrawal record.
// An amount above the balance fails with ErrInsufficientFunds and mutates
// nothing. Returns the new balance in cents.
func (service *Service) Withdraw(ctx context.Context, accountID AccountID, amount AmountCents) (AmountCents, error) {
	newBalance, operationError := service.withdraw(ctx, accountID, amount)
	service.logOperation(ctx, OperationLog{
		Operation:   operationWithdraw,
		AccountID:   accountID.String(),
		AmountCents: amount,
		Error:       operationError,
	})
	return newBalance, operationError
}

func (service *Service) withdraw(ctx context.Context, accountID AccountID, amount AmountCents) (AmountCents, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return 0, ErrAccountNotFound
	}
	if amount.Int64() > account.BalanceCents {
		return 0, ErrInsufficientFunds
	}
	account.BalanceCents -= amount.Int64()
	account.Transactions = append(account.Transactions, Transaction{
		Kind:        KindWithdrawal,
		AmountCents: amount.Negated(),
		AtUnixUTC:   service.nowFn(),
	})
	if err := service.store.Save(ctx, accounts); err != nil {
		return 0, err
	}
	return AmountCents(account.BalanceCents), nil
}

// Transfer moves an amount between two accounts. Both balance changes and
// both records (TransferOut on the source, TransferIn on the destination,
// identical timestamps) are applied in memory before the single Save, so the
// committed snapshot carries both sides or neither.
func (service *Service) Transfer(ctx context.Context, sourceID AccountID, destinationID AccountID, amount AmountCents) (AmountCents, error) {
	newBalance, operationError := service.transfer(ctx, sourceID, destinationID, amount)
	service.logOperation(ctx, OperationLog{
		Operation:      operationTransfer,
		AccountID:      sourceID.String(),
		CounterpartyID: destinationID.String(),
		AmountCents:    amount,
		Error:          operationError,
	})
	return newBalance, operationError
}

func (service *Service) transfer(ctx context.Context, sourceID AccountID, destinationID AccountID, amount AmountCents) (AmountCents, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	source, known := accounts[sourceID.String()]
	if !known {
		return 0, ErrAccountNotFound
	}
	destination, known := accounts[destinationID.String()]
	if !known {
		return 0, ErrAccountNotFound
	}
	if amount.Int64() > source.BalanceCents {
		return 0, ErrInsufficientFunds
	}
	transferredAt := service.nowFn()
	source.BalanceCents -= amount.Int64()
	destination.BalanceCents += amount.Int64()
	source.Transactions = append(source.Transactions, Transaction{
		Kind:        KindTransferOut,
		AmountCents: amount.Negated(),
		AtUnixUTC:   transferredAt,
	})
	destination.Transactions = append(destination.Transactions, Transaction{
		Kind:        KindTransferIn,
		AmountCents: amount,
		AtUnixUTC:   transferredAt,
	})
	if err := service.store.Save(ctx, accounts); err != nil {
		return 0, err
	}
	return AmountCents(source.BalanceCents), nil
}

// ChangePIN replaces the credential hash after verifying the current PIN.
// A mismatch fails with ErrInvalidPIN and does not touch the login-attempt
// counter: the operation is only reachable from an authenticated session, so
// its failures are not credential-guessing signals.
func (service *Service) ChangePIN(ctx context.Context, accountID AccountID, currentPIN PIN, newPIN PIN) error {
	operationError := service.changePIN(ctx, accountID, currentPIN, newPIN)
	service.logOperation(ctx, OperationLog{
		Operation: operationChangePIN,
		AccountID: accountID.String(),
		Error:     operationError,
	})
	return operationError
}

func (service *Service) changePIN(ctx context.Context, accountID AccountID, currentPIN PIN, newPIN PIN) error {
	if !isFourDigits(newPIN.String()) {
		return ErrInvalidPINFormat
	}
	accounts, err := service.store.Load(ctx)
	if err != nil {
		return err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return ErrAccountNotFound
	}
	matched, err := service.hasher.Verify(account.CredentialHash, currentPIN.String())
	if err != nil {
		return WrapError(operationChangePIN, "credential", "verify", err)
	}
	if !matched {
		return ErrInvalidPIN
	}
	credentialHash, err := service.hasher.Hash(newPIN.String())
	if err != nil {
		return WrapError(operationChangePIN, "credential", "hash", err)
	}
	account.CredentialHash = credentialHash
	return service.store.Save(ctx, accounts)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
