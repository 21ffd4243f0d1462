package application

import (
	"context"
	"errors"
	"log"
	"time"

	ledger "lendledger/internal/ledger/domain"
	"lendledger/internal/observability/metrics"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RecordService handles ledger record use cases, including the reassignment
// history snapshot taken whenever a device changes hands.
type RecordService struct {
	store  ledger.Store
	clock  Clock
	logger *log.Logger
}

// NewRecordService constructs the service.
func NewRecordService(store ledger.Store, clock Clock, logger *log.Logger) (*RecordService, error) {
	if store == nil {
		return nil, errors.New("record service: nil store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RecordService{store: store, clock: clock, logger: logger}, nil
}

// Create inserts a new record.
func (s *RecordService) Create(ctx context.Context, record *ledger.Record) error {
	if record == nil {
		return ledger.ErrNilRecord
	}
	if record.ID == "" {
		record.ID = ledger.NewRecordID()
	}
	if err := record.Validate(); err != nil {
		return err
	}
	return s.store.Insert(ctx, record)
}

// Get loads a record by id.
func (s *RecordService) Get(ctx context.Context, kind ledger.Kind, id string) (*ledger.Record, error) {
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}
	return s.store.FetchByID(ctx, kind, id)
}

// List loads every record of a kind.
func (s *RecordService) List(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	return s.store.ListByKind(ctx, kind)
}

// History loads the usage history of one device.
func (s *RecordService) History(ctx context.Context, deviceID string) ([]ledger.UsageHistory, error) {
	if deviceID == "" {
		return nil, ledger.ErrEmptyID
	}
	return s.store.ListHistory(ctx, deviceID)
}

// UpdateWithHistory applies a patch to a record. When the patch moves the
// device to a different holder and the current holder is non-empty, the
// closing tenancy is snapshotted into usage history first. The snapshot is
// best-effort: a failed history write is logged and the primary update
// proceeds. The identifying key is stripped from the patch unconditionally.
func (s *RecordService) UpdateWithHistory(ctx context.Context, kind ledger.Kind, id string, patch ledger.Patch) (*ledger.Record, error) {
	start := time.Now()
	record, err := s.updateWithHistory(ctx, kind, id, patch)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveRecordUpdate(result, time.Since(start))
	return record, err
}

func (s *RecordService) updateWithHistory(ctx context.Context, kind ledger.Kind, id string, patch ledger.Patch) (*ledger.Record, error) {
	if !kind.IsValid() {
		return nil, ledger.ErrInvalidKind
	}
	if id == "" {
		return nil, ledger.ErrEmptyID
	}

	// The identifying key never changes through an update, regardless of
	// what the caller supplied.
	patch.ManagementNumber = nil

	current, err := s.store.FetchByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ledger.ErrRecordNotFound
	}

	previous := current.Assignment
	if patch.HolderCode != nil && *patch.HolderCode != previous.HolderCode && previous.HolderCode != "" {
		entry := &ledger.UsageHistory{
			ID:           ledger.NewHistoryID(),
			DeviceID:     current.ID,
			HolderCode:   previous.HolderCode,
			LocationCode: previous.LocationCode,
			StartDate:    previous.LendDate,
			EndDate:      s.clock.Now().UTC().Format("2006-01-02"),
		}
		if err := s.store.InsertHistory(ctx, entry); err != nil {
			s.logger.Printf("usage history write failed for %s/%s: %v", kind, id, err)
			metrics.IncHistoryWrite(metrics.ResultError)
		} else {
			metrics.IncHistoryWrite(metrics.ResultSuccess)
		}
	}

	return s.store.Update(ctx, kind, id, patch)
}
