package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// AccountRow represents the accounts table. Transactions ride along as a
// JSON document; the account history is append-only and always read whole.
type AccountRow struct {
	AccountID      string         `gorm:"primaryKey;size:4"`
	CredentialHash string         `gorm:"not null"`
	BalanceCents   int64          `gorm:"not null"`
	AccountType    string         `gorm:"not null"`
	Transactions   datatypes.JSON `gorm:"not null"`
	LoginAttempts  int            `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (AccountRow) TableName() string { return "accounts" }

// SnapshotRevision is the single-row optimistic version guard for the
// complete-state Save.
type SnapshotRevision struct {
	ID        int64     `gorm:"primaryKey"`
	Revision  int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SnapshotRevision) TableName() string { return "snapshot_revisions" }

// rowTransaction is the JSON element stored in AccountRow.Transactions.
type rowTransaction struct {
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	AtUnixUTC   int64  `json:"at_unix_utc"`
}
