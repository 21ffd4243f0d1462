package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// UsageHistory is one closed tenancy of a device: the holder and location it
// was assigned to, bounded by the lend date and the date the holder changed.
// Entries are append-only and are never rewritten by the normal flow.
type UsageHistory struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id"`
	HolderCode   string    `json:"holder_code"`
	LocationCode string    `json:"location_code"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks structural invariants before persistence.
func (h *UsageHistory) Validate() error {
	if h == nil {
		return ErrNilHistory
	}
	if h.DeviceID == "" {
		return ErrEmptyID
	}
	return nil
}

// NewHistoryID generates a random history entry id.
func NewHistoryID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "hist-" + hex.EncodeToString(buf)
}
