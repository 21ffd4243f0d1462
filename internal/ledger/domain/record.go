package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Kind identifies a ledger record category.
type Kind string

const (
	KindTablet       Kind = "tablet"
	KindIPhone       Kind = "iphone"
	KindFeaturePhone Kind = "featurephone"
	KindRouter       Kind = "router"
	KindAddress      Kind = "address"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindTablet, KindIPhone, KindFeaturePhone, KindRouter, KindAddress}
}

// IsValid reports whether the kind is one of the supported categories.
func (k Kind) IsValid() bool {
	switch k {
	case KindTablet, KindIPhone, KindFeaturePhone, KindRouter, KindAddress:
		return true
	}
	return false
}

// Well-known field names used by the import engine and the update path.
const (
	FieldManagementNumber = "management_number"
	FieldHolderCode       = "holder_code"
	FieldLocationCode     = "location_code"
	FieldLendDate         = "lend_date"
)

// Assignment captures who currently holds a device and since when.
// LendDate is an ISO date string; all three are empty for unassigned devices.
type Assignment struct {
	HolderCode   string `json:"holder_code"`
	LocationCode string `json:"location_code"`
	LendDate     string `json:"lend_date"`
}

// Record is one ledger entry. ManagementNumber is the identifying key and is
// immutable once the record exists; Fields holds the remaining normalized
// descriptive and contract values keyed by canonical field name.
type Record struct {
	ID               string            `json:"id"`
	Kind             Kind              `json:"kind"`
	ManagementNumber string            `json:"management_number"`
	Fields           map[string]string `json:"fields"`
	Assignment       Assignment        `json:"assignment"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Validate checks structural invariants before persistence.
func (r *Record) Validate() error {
	if r == nil {
		return ErrNilRecord
	}
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if r.ManagementNumber == "" {
		return ErrEmptyManagementNumber
	}
	return nil
}

// Field returns a descriptive field value, empty when absent.
func (r *Record) Field(name string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Patch is a partial update. Nil pointers leave the column untouched.
// ManagementNumber is carried only so the update path can strip it: the
// identifying key never changes through an update.
type Patch struct {
	ManagementNumber *string           `json:"management_number,omitempty"`
	HolderCode       *string           `json:"holder_code,omitempty"`
	LocationCode     *string           `json:"location_code,omitempty"`
	LendDate         *string           `json:"lend_date,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// NewRecordID generates a random record id.
func NewRecordID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "rec-" + hex.EncodeToString(buf)
}
