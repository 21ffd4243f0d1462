package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledger "lendledger/internal/ledger/domain"
)

// InsertHistory appends a usage history entry. History rows are append-only;
// there is no update or delete path.
func (s *Store) InsertHistory(ctx context.Context, entry *ledger.UsageHistory) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store: nil db")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = ledger.NewHistoryID()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, device_id, holder_code, location_code, start_date, end_date
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, s.historyTable)

	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.DeviceID,
		entry.HolderCode,
		entry.LocationCode,
		entry.StartDate,
		entry.EndDate,
	)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ListHistory returns the history of one device, oldest first.
func (s *Store) ListHistory(ctx context.Context, deviceID string) ([]ledger.UsageHistory, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	if deviceID == "" {
		return nil, ledger.ErrEmptyID
	}

	query := fmt.Sprintf(`
SELECT id, device_id, holder_code, location_code, start_date, end_date, created_at
FROM %s
WHERE device_id = $1
ORDER BY created_at ASC, id ASC`, s.historyTable)

	rows, err := s.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.UsageHistory
	for rows.Next() {
		var entry ledger.UsageHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.DeviceID,
			&entry.HolderCode,
			&entry.LocationCode,
			&entry.StartDate,
			&entry.EndDate,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
