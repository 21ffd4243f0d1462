package ledger

import "errors"

var (
	// ErrNilRecord is returned when a nil record is passed to the store.
	ErrNilRecord = errors.New("ledger: nil record")
	// ErrInvalidKind is returned for an unsupported record kind.
	ErrInvalidKind = errors.New("ledger: invalid kind")
	// ErrEmptyManagementNumber is returned when the identifying key is empty.
	ErrEmptyManagementNumber = errors.New("ledger: empty management number")
	// ErrEmptyID is returned when a record id is empty.
	ErrEmptyID = errors.New("ledger: empty record id")
	// ErrRecordNotFound is returned when no record matches the id.
	ErrRecordNotFound = errors.New("ledger: record not found")
	// ErrDuplicateKey is returned when an insert collides with a persisted key.
	ErrDuplicateKey = errors.New("ledger: duplicate identifying key")
	// ErrNilHistory is returned when a nil history entry is passed to the store.
	ErrNilHistory = errors.New("ledger: nil history entry")
)
