// Package gormstore implements teller.Store on a relational database through
// GORM (SQLite or PostgreSQL). It exists for deployments that outgrow the
// JSON snapshot: the same load-modify-save contract, but each Save runs in
// one database transaction guarded by an optimistic revision row.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	revisionRowID         = 1
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore  = "gormstore"
	errorSubjectAccount  = "account"
	errorSubjectRevision = "revision"
	errorCodeList        = "list"
	errorCodeInsert      = "insert"
	errorCodeDelete      = "delete"
	errorCodeInvalid     = "invalid"
	errorCodeGet         = "get"
	errorCodeGuard       = "guard"
)

// Store implements teller.Store using GORM.
type Store struct {
	db *gorm.DB

	mu           sync.Mutex
	lastRevision int64
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema. Only used for SQLite targets; PostgreSQL
// deployments manage schema out of band.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&AccountRow{}, &SnapshotRevision{})
}

// Load reads every account row into the full mapping and remembers the
// current snapshot revision for the next Save.
func (store *Store) Load(ctx context.Context) (map[string]*teller.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	revision, err := store.currentRevision(ctx)
	if err != nil {
		return nil, err
	}
	var rows []AccountRow
	if err := store.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	accounts := make(map[string]*teller.Account, len(rows))
	for _, row := range rows {
		account, err := mapAccountRow(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
		}
		accounts[account.AccountID] = account
	}
	store.lastRevision = revision
	return accounts, nil
}

// Save overwrites the complete account state inside one transaction. The
// revision row is advanced with a guarded update first; when another writer
// has advanced it since this store's last Load, Save fails with
// teller.ErrConcurrentModification and the transaction rolls back.
func (store *Store) Save(ctx context.Context, accounts map[string]*teller.Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	nextRevision := store.lastRevision + 1
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := advanceRevision(transaction, store.lastRevision, nextRevision); err != nil {
			return err
		}
		if err := transaction.Where("1 = 1").Delete(&AccountRow{}).Error; err != nil {
			return wrapStoreError(errorSubjectAccount, errorCodeDelete, err)
		}
		for _, account := range accounts {
			row, err := mapAccountToRow(account)
			if err != nil {
				return wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
			}
			if err := transaction.Create(&row).Error; err != nil {
				return wrapStoreError(errorSubjectAccount, errorCodeInsert, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	store.lastRevision = nextRevision
	return nil
}

func (store *Store) currentRevision(ctx context.Context) (int64, error) {
	var row SnapshotRevision
	err := store.db.WithContext(ctx).Take(&row, revisionRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapStoreError(errorSubjectRevision, errorCodeGet, err)
	}
	return row.Revision, nil
}

func advanceRevision(transaction *gorm.DB, fromRevision int64, toRevision int64) error {
	if fromRevision == 0 {
		err := transaction.Create(&SnapshotRevision{ID: revisionRowID, Revision: toRevision}).Error
		if isUniqueViolation(err) {
			return wrapStoreError(errorSubjectRevision, errorCodeGuard, teller.ErrConcurrentModification)
		}
		if err != nil {
			return wrapStoreError(errorSubjectRevision, errorCodeInsert, err)
		}
		return nil
	}
	result := transaction.
		Model(&SnapshotRevision{}).
		Where("id = ? AND revision = ?", revisionRowID, fromRevision).
		Update("revision", toRevision)
	if result.Error != nil {
		return wrapStoreError(errorSubjectRevision, errorCodeGuard, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectRevision, errorCodeGuard, teller.ErrConcurrentModification)
	}
	return nil
}

func mapAccountToRow(account *teller.Account) (AccountRow, error) {
	transactions := make([]rowTransaction, 0, len(account.Transactions))
	for _, transaction := range account.Transactions {
		transactions = append(transactions, rowTransaction{
			Kind:        transaction.Kind.String(),
			AmountCents: transaction.AmountCents.Int64(),
			AtUnixUTC:   transaction.AtUnixUTC,
		})
	}
	encoded, err := json.Marshal(transactions)
	if err != nil {
		return AccountRow{}, err
	}
	return AccountRow{
		AccountID:      account.AccountID,
		CredentialHash: account.CredentialHash,
		BalanceCents:   account.BalanceCents,
		AccountType:    account.Type.String(),
		Transactions:   datatypes.JSON(encoded),
		LoginAttempts:  account.LoginAttempts,
		UpdatedAt:      time.Now().UTC(),
	}, nil
}

func mapAccountRow(row AccountRow) (*teller.Account, error) {
	if _, err := teller.NewAccountID(row.AccountID); err != nil {
		return nil, corruptRow(row.AccountID, err)
	}
	accountType, err := teller.ParseAccountType(row.AccountType)
	if err != nil {
		return nil, corruptRow(row.AccountID, err)
	}
	balance, err := teller.NewBalanceCents(row.BalanceCents)
	if err != nil {
		return nil, corruptRow(row.AccountID, err)
	}
	if row.LoginAttempts < 0 {
		return nil, corruptRow(row.AccountID, errors.New("negative login attempts"))
	}
	var encoded []rowTransaction
	if len(row.Transactions) > 0 {
		if err := json.Unmarshal(row.Transactions, &encoded); err != nil {
			return nil, corruptRow(row.AccountID, err)
		}
	}
	transactions := make([]teller.Transaction, 0, len(encoded))
	for _, record := range encoded {
		kind, err := teller.ParseTransactionKind(record.Kind)
		if err != nil {
			return nil, corruptRow(row.AccountID, err)
		}
		transactions = append(transactions, teller.Transaction{
			Kind:        kind,
			AmountCents: teller.AmountCents(record.AmountCents),
			AtUnixUTC:   record.AtUnixUTC,
		})
	}
	return &teller.Account{
		AccountID:      row.AccountID,
		CredentialHash: row.CredentialHash,
		BalanceCents:   balance.Int64(),
		Type:           accountType,
		Transactions:   transactions,
		LoginAttempts:  row.LoginAttempts,
	}, nil
}

func corruptRow(accountID string, err error) error {
	return errors.Join(teller.ErrCorruptStore, errors.New("account "+accountID), err)
}

func wrapStoreError(subject string, code string, err error) error {
	return teller.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
