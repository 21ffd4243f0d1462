package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	ledger "lendledger/internal/ledger/domain"
)

const (
	defaultRecordsTable = "ledger_records"
	defaultHistoryTable = "usage_history"

	uniqueViolationCode = "23505"
)

// Store is the Postgres implementation of ledger.Store. Each insert is its
// own statement: a failing row never rolls back rows committed before it.
type Store struct {
	db           DBTX
	recordsTable string
	historyTable string
}

// NewStore constructs a store.
func NewStore(db DBTX, opts ...Option) *Store {
	store := &Store{
		db:           db,
		recordsTable: defaultRecordsTable,
		historyTable: defaultHistoryTable,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Option configures the store.
type Option func(*Store)

// WithRecordsTable overrides the default records table name.
func WithRecordsTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.recordsTable = table
		}
	}
}

// WithHistoryTable overrides the default history table name.
func WithHistoryTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.historyTable = table
		}
	}
}

// ListByKind loads every record of a kind ordered by management number.
func (s *Store) ListByKind(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}

	query := fmt.Sprintf(`
SELECT id, kind, management_number, fields, holder_code, location_code, lend_date, created_at, updated_at
FROM %s
WHERE kind = $1
ORDER BY management_number ASC`, s.recordsTable)

	rows, err := s.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchByID loads one record; nil when absent.
func (s *Store) FetchByID(ctx context.Context, kind ledger.Kind, id string) (*ledger.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}

	query := fmt.Sprintf(`
SELECT id, kind, management_number, fields, holder_code, location_code, lend_date, created_at, updated_at
FROM %s
WHERE kind = $1 AND id = $2
LIMIT 1`, s.recordsTable)

	record, err := scanRecord(func(dest ...any) error {
		return s.db.QueryRowContext(ctx, query, string(kind), id).Scan(dest...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// Insert persists a new record. A unique-key collision maps to
// ledger.ErrDuplicateKey so callers can report it as a duplicate rather
// than an opaque database failure.
func (s *Store) Insert(ctx context.Context, record *ledger.Record) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store: nil db")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = ledger.NewRecordID()
	}

	fields, err := json.Marshal(nonNilFields(record.Fields))
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, kind, management_number, fields, holder_code, location_code, lend_date
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)`, s.recordsTable)

	_, err = s.db.ExecContext(
		ctx,
		query,
		record.ID,
		string(record.Kind),
		record.ManagementNumber,
		fields,
		record.Assignment.HolderCode,
		record.Assignment.LocationCode,
		record.Assignment.LendDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ledger.ErrDuplicateKey
		}
		return err
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	return nil
}

// Update applies a patch and returns the updated record. The management
// number column is never part of the write.
func (s *Store) Update(ctx context.Context, kind ledger.Kind, id string, patch ledger.Patch) (*ledger.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}

	current, err := s.FetchByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ledger.ErrRecordNotFound
	}

	if patch.HolderCode != nil {
		current.Assignment.HolderCode = *patch.HolderCode
	}
	if patch.LocationCode != nil {
		current.Assignment.LocationCode = *patch.LocationCode
	}
	if patch.LendDate != nil {
		current.Assignment.LendDate = *patch.LendDate
	}
	for name, value := range patch.Fields {
		if name == ledger.FieldManagementNumber {
			continue
		}
		if current.Fields == nil {
			current.Fields = make(map[string]string)
		}
		current.Fields[name] = value
	}

	fields, err := json.Marshal(nonNilFields(current.Fields))
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET fields = $3,
	holder_code = $4,
	location_code = $5,
	lend_date = $6,
	updated_at = NOW()
WHERE kind = $1 AND id = $2`, s.recordsTable)

	if _, err := s.db.ExecContext(
		ctx,
		query,
		string(kind),
		id,
		fields,
		current.Assignment.HolderCode,
		current.Assignment.LocationCode,
		current.Assignment.LendDate,
	); err != nil {
		return nil, err
	}
	current.UpdatedAt = time.Now().UTC()
	return current, nil
}

func scanRecord(scan func(dest ...any) error) (*ledger.Record, error) {
	var record ledger.Record
	var kind string
	var fields []byte
	if err := scan(
		&record.ID,
		&kind,
		&record.ManagementNumber,
		&fields,
		&record.Assignment.HolderCode,
		&record.Assignment.LocationCode,
		&record.Assignment.LendDate,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	record.Kind = ledger.Kind(kind)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &record.Fields); err != nil {
			return nil, err
		}
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}

func nonNilFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}
