package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "lendledger/internal/ledger/domain"
)

// Store is an in-memory ledger store for demo/testing. It implements
// ledger.Store with the same row-isolated insert semantics as the Postgres
// implementation.
type Store struct {
	mu      sync.RWMutex
	records map[ledger.Kind]map[string]*ledger.Record
	history []ledger.UsageHistory
}

// NewStore constructs a store.
func NewStore() *Store {
	return &Store{
		records: make(map[ledger.Kind]map[string]*ledger.Record),
	}
}

// ListByKind returns every record of a kind ordered by management number.
func (s *Store) ListByKind(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	_ = ctx
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ledger.Record, 0, len(s.records[kind]))
	for _, record := range s.records[kind] {
		result = append(result, cloneRecord(record))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ManagementNumber < result[j].ManagementNumber
	})
	return result, nil
}

// FetchByID loads one record; nil when absent.
func (s *Store) FetchByID(ctx context.Context, kind ledger.Kind, id string) (*ledger.Record, error) {
	_ = ctx
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[kind][id]
	if !ok {
		return nil, nil
	}
	clone := cloneRecord(record)
	return &clone, nil
}

// Insert persists a new record.
func (s *Store) Insert(ctx context.Context, record *ledger.Record) error {
	_ = ctx
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		return ledger.ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.records[record.Kind]
	if byID == nil {
		byID = make(map[string]*ledger.Record)
		s.records[record.Kind] = byID
	}
	for _, existing := range byID {
		if existing.ManagementNumber == record.ManagementNumber {
			return ledger.ErrDuplicateKey
		}
	}

	now := time.Now().UTC()
	clone := cloneRecord(record)
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	byID[record.ID] = &clone
	record.CreatedAt = clone.CreatedAt
	record.UpdatedAt = clone.UpdatedAt
	return nil
}

// Update applies a patch. The management number column is never written.
func (s *Store) Update(ctx context.Context, kind ledger.Kind, id string, patch ledger.Patch) (*ledger.Record, error) {
	_ = ctx
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[kind][id]
	if !ok {
		return nil, ledger.ErrRecordNotFound
	}

	if patch.HolderCode != nil {
		record.Assignment.HolderCode = *patch.HolderCode
	}
	if patch.LocationCode != nil {
		record.Assignment.LocationCode = *patch.LocationCode
	}
	if patch.LendDate != nil {
		record.Assignment.LendDate = *patch.LendDate
	}
	for name, value := range patch.Fields {
		if name == ledger.FieldManagementNumber {
			continue
		}
		if record.Fields == nil {
			record.Fields = make(map[string]string)
		}
		record.Fields[name] = value
	}
	record.UpdatedAt = time.Now().UTC()

	clone := cloneRecord(record)
	return &clone, nil
}

// InsertHistory appends a usage history entry.
func (s *Store) InsertHistory(ctx context.Context, entry *ledger.UsageHistory) error {
	_ = ctx
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *entry
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	s.history = append(s.history, clone)
	return nil
}

// ListHistory returns the history of one device, oldest first.
func (s *Store) ListHistory(ctx context.Context, deviceID string) ([]ledger.UsageHistory, error) {
	_ = ctx
	if deviceID == "" {
		return nil, ledger.ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.UsageHistory
	for _, entry := range s.history {
		if entry.DeviceID == deviceID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func cloneRecord(record *ledger.Record) ledger.Record {
	clone := *record
	if record.Fields != nil {
		clone.Fields = make(map[string]string, len(record.Fields))
		for k, v := range record.Fields {
			clone.Fields[k] = v
		}
	}
	return clone
}
