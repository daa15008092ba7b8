package teller

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by teller operations.
// It receives every event a collaborator needs to build an audit log.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one authentication or ledger operation outcome.
type OperationLog struct {
	Operation      string
	AccountID      string
	CounterpartyID string
	AmountCents    AmountCents
	Status         string
	Error          error
}

// WithOperationLogger wires a logger that receives callbacks for every
// ledger operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}
