// Package audit implements teller.OperationLogger as a tamper-evident trail:
// every authentication and mutation outcome is logged structurally through
// zap and chained by SHA-256 over previous-hash|timestamp|payload, so a
// modified or dropped event breaks verification of everything after it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Event is one chained audit record.
type Event struct {
	EventID      string `json:"event_id"`
	Timestamp    string `json:"timestamp"`
	Operation    string `json:"operation"`
	AccountID    string `json:"account_id"`
	Counterparty string `json:"counterparty,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	Status       string `json:"status"`
	Detail       string `json:"detail,omitempty"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
}

// Recorder accumulates the chained trail and mirrors each event to a zap
// logger. Safe for concurrent use.
type Recorder struct {
	logger *zap.Logger
	nowFn  func() time.Time

	mu           sync.Mutex
	previousHash string
	events       []Event
}

// Option configures a Recorder instance.
type Option func(*Recorder)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(recorder *Recorder) {
		recorder.nowFn = now
	}
}

// NewRecorder returns a Recorder mirroring events to the given logger.
func NewRecorder(logger *zap.Logger, options ...Option) *Recorder {
	recorder := &Recorder{
		logger:       logger,
		nowFn:        func() time.Time { return time.Now().UTC() },
		previousHash: genesisHash,
	}
	for _, option := range options {
		if option != nil {
			option(recorder)
		}
	}
	return recorder
}

// LogOperation appends one event to the chain.
func (recorder *Recorder) LogOperation(_ context.Context, entry teller.OperationLog) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	event := Event{
		EventID:      uuid.NewString(),
		Timestamp:    recorder.nowFn().Format(time.RFC3339),
		Operation:    entry.Operation,
		AccountID:    entry.AccountID,
		Counterparty: entry.CounterpartyID,
		AmountCents:  entry.AmountCents.Int64(),
		Status:       entry.Status,
		PreviousHash: recorder.previousHash,
	}
	if entry.Error != nil {
		event.Detail = entry.Error.Error()
	}
	event.Hash = chainHash(event)
	recorder.previousHash = event.Hash
	recorder.events = append(recorder.events, event)

	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("operation", event.Operation),
		zap.String("account_id", event.AccountID),
		zap.String("status", event.Status),
		zap.Int64("amount_cents", event.AmountCents),
		zap.String("hash", event.Hash),
	}
	if event.Counterparty != "" {
		fields = append(fields, zap.String("counterparty", event.Counterparty))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	if entry.Error != nil {
		recorder.logger.Warn("teller operation failed", fields...)
		return
	}
	recorder.logger.Info("teller operation", fields...)
}

// Trail returns a copy of the chained events in append order.
func (recorder *Recorder) Trail() []Event {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	trail := make([]Event, len(recorder.events))
	copy(trail, recorder.events)
	return trail
}

// VerifyTrail recomputes the chain and reports the first broken link.
func VerifyTrail(events []Event) error {
	previousHash := genesisHash
	if len(events) > 0 {
		previousHash = events[0].PreviousHash
	}
	for index, event := range events {
		if event.PreviousHash != previousHash {
			return fmt.Errorf("audit trail broken at event %d: previous hash mismatch", index)
		}
		if chainHash(event) != event.Hash {
			return fmt.Errorf("audit trail broken at event %d: hash mismatch", index)
		}
		previousHash = event.Hash
	}
	return nil
}

func chainHash(event Event) string {
	payload := strings.Join([]string{
		event.EventID,
		event.Operation,
		event.AccountID,
		event.Counterparty,
		fmt.Sprintf("%d", event.AmountCents),
		event.Status,
		event.Detail,
	}, "|")
	sum := sha256.Sum256([]byte(event.PreviousHash + "|" + event.Timestamp + "|" + payload))
	return hex.EncodeToString(sum[:])
}
