package teller

const (
	operationAuthenticate  = "authenticate"
	operationCreateAccount = "create_account"
	operationDeposit       = "deposit"
	operationWithdraw      = "withdraw"
	operationTransfer      = "transfer"
	operationChangePIN     = "change_pin"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// DefaultMaxLoginAttempts locks an account after this many consecutive
	// authentication failures.
	DefaultMaxLoginAttempts = 3

	// DefaultStatementLimit bounds the mini statement length.
	DefaultStatementLimit = 5

	accountIDFloor = 1000
	accountIDSpan  = 9000

	maxAllocationAttempts = 100000
)
