package ledger

import "context"

// Store is the persisted-record collaborator. Implementations must keep
// inserts row-isolated: a failed insert leaves earlier inserts in place.
type Store interface {
	ListByKind(ctx context.Context, kind Kind) ([]Record, error)
	FetchByID(ctx context.Context, kind Kind, id string) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	Update(ctx context.Context, kind Kind, id string, patch Patch) (*Record, error)
	InsertHistory(ctx context.Context, entry *UsageHistory) error
	ListHistory(ctx context.Context, deviceID string) ([]UsageHistory, error)
}
