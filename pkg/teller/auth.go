package teller

import "context"

// AuthManager runs the login-attempt state machine over the account store.
// An account is Active while its failure counter is below the configured
// maximum and Locked once the counter reaches it.
type AuthManager struct {
	store       Store
	hasher      CredentialHasher
	maxAttempts int
	logger      OperationLogger
}

// AuthManagerOption configures an AuthManager instance.
type AuthManagerOption func(*AuthManager)

// WithMaxLoginAttempts overrides the lockout threshold.
func WithMaxLoginAttempts(maxAttempts int) AuthManagerOption {
	return func(manager *AuthManager) {
		manager.maxAttempts = maxAttempts
	}
}

// WithAuthOperationLogger wires a logger that receives callbacks for every
// authentication attempt.
func WithAuthOperationLogger(logger OperationLogger) AuthManagerOption {
	return func(manager *AuthManager) {
		manager.logger = logger
	}
}

// NewAuthManager wires an AuthManager.
func NewAuthManager(store Store, hasher CredentialHasher, options ...AuthManagerOption) (*AuthManager, error) {
	if store == nil {
		return nil, WrapError(operationAuthenticate, "config", "nil_store", ErrInvalidServiceConfig)
	}
	if hasher == nil {
		return nil, WrapError(operationAuthenticate, "config", "nil_hasher", ErrInvalidServiceConfig)
	}
	manager := &AuthManager{store: store, hasher: hasher, maxAttempts: DefaultMaxLoginAttempts}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	if manager.maxAttempts <= 0 {
		return nil, WrapError(operationAuthenticate, "config", "max_attempts", ErrInvalidServiceConfig)
	}
	return manager, nil
}

// Authenticate verifies a PIN for an account and returns the account id as
// the session token. A locked account is refused before any hash comparison,
// so attempts against it never burn further counter increments. A failed
// comparison increments the counter and persists; the failure that crosses
// the limit matches ErrAccountLockedNow in addition to ErrInvalidPIN.
func (manager *AuthManager) Authenticate(ctx context.Context, accountID AccountID, pin PIN) (string, error) {
	token, operationError := manager.authenticate(ctx, accountID, pin)
	manager.logOperation(ctx, OperationLog{
		Operation: operationAuthenticate,
		AccountID: accountID.String(),
		Error:     operationError,
	})
	return token, operationError
}

func (manager *AuthManager) authenticate(ctx context.Context, accountID AccountID, pin PIN) (string, error) {
	accounts, err := manager.store.Load(ctx)
	if err != nil {
		return "", err
	}
	account, known := accounts[accountID.String()]
	if !known {
		return "", ErrAccountNotFound
	}
	if account.LoginAttempts >= manager.maxAttempts {
		return "", ErrAccountLocked
	}
	matched, err := manager.hasher.Verify(account.CredentialHash, pin.String())
	if err != nil {
		return "", WrapError(operationAuthenticate, "credential", "verify", err)
	}
	if matched {
		account.LoginAttempts = 0
		if err := manager.store.Save(ctx, accounts); err != nil {
			return "", err
		}
		return accountID.String(), nil
	}
	account.LoginAttempts++
	if err := manager.store.Save(ctx, accounts); err != nil {
		return "", err
	}
	if account.LoginAttempts >= manager.maxAttempts {
		return "", ErrAccountLockedNow
	}
	return "", ErrInvalidPIN
}

func (manager *AuthManager) logOperation(ctx context.Context, entry OperationLog) {
	if manager.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	manager.logger.LogOperation(ctx, entry)
}
