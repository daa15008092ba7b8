// Package jsonstore persists the account collection as a single
// human-inspectable JSON snapshot, wire-compatible with files written by the
// predecessor system. Writes are atomic (temp file + rename) and guarded by
// an optimistic revision counter kept under the reserved "_meta" key, which
// can never collide with the four digit account keys.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
)

const (
	metaKey        = "_meta"
	snapshotFormat = "json_snapshot"
	formatVersion  = 1

	errorOperationStore = "jsonstore"
	errorSubjectFile    = "file"
	errorSubjectAccount = "account"
	errorSubjectMeta    = "meta"
	errorCodeRead       = "read"
	errorCodeWrite      = "write"
	errorCodeRename     = "rename"
	errorCodeDecode     = "decode"
	errorCodeInvalid    = "invalid"
	errorCodeRevision   = "revision"
)

// Spanish wire vocabulary inherited from the predecessor snapshots.
var (
	accountTypeToWire = map[teller.AccountType]string{
		teller.AccountTypeSavings:  "Ahorro",
		teller.AccountTypeChecking: "Corriente",
	}
	wireToAccountType = map[string]teller.AccountType{
		"Ahorro":    teller.AccountTypeSavings,
		"Corriente": teller.AccountTypeChecking,
	}
	kindToWire = map[teller.TransactionKind]string{
		teller.KindDeposit:     "depósito",
		teller.KindWithdrawal:  "retiro",
		teller.KindTransferOut: "transferencia enviada",
		teller.KindTransferIn:  "transferencia recibida",
	}
	wireToKind = map[string]teller.TransactionKind{
		"depósito":               teller.KindDeposit,
		"retiro":                 teller.KindWithdrawal,
		"transferencia enviada":  teller.KindTransferOut,
		"transferencia recibida": teller.KindTransferIn,
	}
)

type wireMeta struct {
	Storage  string `json:"storage"`
	Version  int    `json:"version"`
	Revision int64  `json:"revision"`
	SavedAt  string `json:"saved_at"`
}

type wireTransaction struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type wireAccount struct {
	PIN           string            `json:"pin"`
	Balance       float64           `json:"balance"`
	Type          string            `json:"type"`
	Transactions  []wireTransaction `json:"transactions"`
	LoginAttempts int               `json:"login_attempts"`
}

// Store implements teller.Store over a JSON snapshot file.
type Store struct {
	path string

	mu           sync.Mutex
	lastRevision int64
	nowFn        func() time.Time
}

// Option configures a Store instance.
type Option func(*Store)

// WithClock overrides the timestamp source used for snapshot metadata.
func WithClock(now func() time.Time) Option {
	return func(store *Store) {
		store.nowFn = now
	}
}

// New returns a Store persisting to the given path.
func New(path string, options ...Option) *Store {
	store := &Store{path: path, nowFn: func() time.Time { return time.Now().UTC() }}
	for _, option := range options {
		if option != nil {
			option(store)
		}
	}
	return store
}

// Load reads the snapshot and returns the full account mapping. A missing
// file yields an empty mapping; unparsable or invalid content fails with
// teller.ErrCorruptStore.
func (store *Store) Load(_ context.Context) (map[string]*teller.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	raw, revision, err := store.readSnapshot()
	if err != nil {
		return nil, err
	}
	accounts := make(map[string]*teller.Account, len(raw))
	for accountID, record := range raw {
		account, err := mapAccount(accountID, record)
		if err != nil {
			return nil, err
		}
		accounts[accountID] = account
	}
	store.lastRevision = revision
	return accounts, nil
}

// Save serializes the complete mapping and atomically replaces the snapshot.
// When the on-disk revision no longer matches the one this store last
// loaded, another writer got there first and Save fails with
// teller.ErrConcurrentModification without touching the file.
func (store *Store) Save(_ context.Context, accounts map[string]*teller.Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, diskRevision, err := store.readSnapshot()
	if err != nil {
		return err
	}
	if diskRevision != store.lastRevision {
		return wrapStoreError(errorSubjectMeta, errorCodeRevision, teller.ErrConcurrentModification)
	}

	snapshot := make(map[string]json.RawMessage, len(accounts)+1)
	accountIDs := make([]string, 0, len(accounts))
	for accountID := range accounts {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)
	for _, accountID := range accountIDs {
		encoded, err := json.Marshal(toWireAccount(accounts[accountID]))
		if err != nil {
			return wrapStoreError(errorSubjectAccount, errorCodeWrite, err)
		}
		snapshot[accountID] = encoded
	}
	nextRevision := store.lastRevision + 1
	encodedMeta, err := json.Marshal(wireMeta{
		Storage:  snapshotFormat,
		Version:  formatVersion,
		Revision: nextRevision,
		SavedAt:  store.nowFn().Format(time.RFC3339),
	})
	if err != nil {
		return wrapStoreError(errorSubjectMeta, errorCodeWrite, err)
	}
	snapshot[metaKey] = encodedMeta

	if err := store.writeAtomic(snapshot); err != nil {
		return err
	}
	store.lastRevision = nextRevision
	return nil
}

func (store *Store) readSnapshot() (map[string]json.RawMessage, int64, error) {
	content, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, 0, nil
	}
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectFile, errorCodeRead, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, 0, wrapStoreError(errorSubjectFile, errorCodeDecode, fmt.Errorf("%w: %v", teller.ErrCorruptStore, err))
	}
	revision := int64(0)
	if encodedMeta, hasMeta := raw[metaKey]; hasMeta {
		var meta wireMeta
		if err := json.Unmarshal(encodedMeta, &meta); err != nil {
			return nil, 0, wrapStoreError(errorSubjectMeta, errorCodeDecode, fmt.Errorf("%w: %v", teller.ErrCorruptStore, err))
		}
		revision = meta.Revision
		delete(raw, metaKey)
	}
	return raw, revision, nil
}

func (store *Store) writeAtomic(snapshot map[string]json.RawMessage) error {
	temp, err := os.CreateTemp(filepath.Dir(store.path), filepath.Base(store.path)+".tmp-*")
	if err != nil {
		return wrapStoreError(errorSubjectFile, errorCodeWrite, err)
	}
	encoder := json.NewEncoder(temp)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(snapshot); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return wrapStoreError(errorSubjectFile, errorCodeWrite, err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return wrapStoreError(errorSubjectFile, errorCodeWrite, err)
	}
	if err := os.Rename(temp.Name(), store.path); err != nil {
		_ = os.Remove(temp.Name())
		return wrapStoreError(errorSubjectFile, errorCodeRename, err)
	}
	return nil
}

func toWireAccount(account *teller.Account) wireAccount {
	transactions := make([]wireTransaction, 0, len(account.Transactions))
	for _, transaction := range account.Transactions {
		transactions = append(transactions, wireTransaction{
			Type:   kindToWire[transaction.Kind],
			Amount: centsToDecimal(transaction.AmountCents.Int64()),
			Date:   time.Unix(transaction.AtUnixUTC, 0).UTC().Format(time.RFC3339),
		})
	}
	return wireAccount{
		PIN:           account.CredentialHash,
		Balance:       centsToDecimal(account.BalanceCents),
		Type:          accountTypeToWire[account.Type],
		Transactions:  transactions,
		LoginAttempts: account.LoginAttempts,
	}
}

func mapAccount(accountID string, record json.RawMessage) (*teller.Account, error) {
	if _, err := teller.NewAccountID(accountID); err != nil {
		return nil, corruptField(accountID, "account id", err)
	}
	var wire wireAccount
	if err := json.Unmarshal(record, &wire); err != nil {
		return nil, corruptField(accountID, "record", err)
	}
	if wire.PIN == "" {
		return nil, corruptField(accountID, "pin", errors.New("missing"))
	}
	accountType, knownType := wireToAccountType[wire.Type]
	if !knownType {
		return nil, corruptField(accountID, "type", fmt.Errorf("unknown %q", wire.Type))
	}
	balanceCents := decimalToCents(wire.Balance)
	if balanceCents < 0 {
		return nil, corruptField(accountID, "balance", errors.New("negative"))
	}
	if wire.LoginAttempts < 0 {
		return nil, corruptField(accountID, "login_attempts", errors.New("negative"))
	}
	transactions := make([]teller.Transaction, 0, len(wire.Transactions))
	for _, wireRecord := range wire.Transactions {
		kind, knownKind := wireToKind[wireRecord.Type]
		if !knownKind {
			return nil, corruptField(accountID, "transaction type", fmt.Errorf("unknown %q", wireRecord.Type))
		}
		at, err := parseWireDate(wireRecord.Date)
		if err != nil {
			return nil, corruptField(accountID, "transaction date", err)
		}
		transactions = append(transactions, teller.Transaction{
			Kind:        kind,
			AmountCents: teller.AmountCents(decimalToCents(wireRecord.Amount)),
			AtUnixUTC:   at,
		})
	}
	return &teller.Account{
		AccountID:      accountID,
		CredentialHash: wire.PIN,
		BalanceCents:   balanceCents,
		Type:           accountType,
		Transactions:   transactions,
		LoginAttempts:  wire.LoginAttempts,
	}, nil
}

// parseWireDate accepts RFC 3339 and the zone-less ISO-8601 form the
// predecessor wrote, which is taken as UTC.
func parseWireDate(raw string) (int64, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.Unix(), nil
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.999999999", raw)
	if err != nil {
		return 0, err
	}
	return parsed.UTC().Unix(), nil
}

func centsToDecimal(cents int64) float64 {
	return float64(cents) / 100
}

func decimalToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func corruptField(accountID string, field string, err error) error {
	return wrapStoreError(errorSubjectAccount, errorCodeInvalid, fmt.Errorf("%w: account %s: %s: %v", teller.ErrCorruptStore, accountID, field, err))
}

func wrapStoreError(subject string, code string, err error) error {
	return teller.WrapError(errorOperationStore, subject, code, err)
}
