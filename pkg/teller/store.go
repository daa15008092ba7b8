package teller

import "context"

// Store is the persistence contract for the account collection. Load returns
// an empty map when no snapshot exists yet and ErrCorruptStore when the
// backing content cannot be parsed as valid account data. Save overwrites the
// complete snapshot and must be externally atomic: a reader observes either
// the old snapshot or the new one, never a partial write.
type Store interface {
	Load(ctx context.Context) (map[string]*Account, error)
	Save(ctx context.Context, accounts map[string]*Account) error
}
