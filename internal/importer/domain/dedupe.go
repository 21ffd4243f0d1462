package importer

import "fmt"

// DuplicateTracker holds the two identity tiers per unique-key field: keys
// already persisted when the batch started, and keys committed earlier in
// this batch. One tracker serves exactly one batch invocation; it is never
// shared across imports.
type DuplicateTracker struct {
	existing  map[string]map[string]struct{}
	processed map[string]map[string]struct{}
}

// NewDuplicateTracker constructs an empty tracker.
func NewDuplicateTracker() *DuplicateTracker {
	return &DuplicateTracker{
		existing:  make(map[string]map[string]struct{}),
		processed: make(map[string]map[string]struct{}),
	}
}

// SeedExisting loads persisted keys for one field. Keys must already be in
// the same canonical form the importer produces for incoming rows.
func (t *DuplicateTracker) SeedExisting(field string, keys []string) {
	set := t.existing[field]
	if set == nil {
		set = make(map[string]struct{}, len(keys))
		t.existing[field] = set
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
}

// Check tests one key against both tiers. Existing keys win over within-file
// duplicates so the message points at the persisted record.
func (t *DuplicateTracker) Check(field, label, key string, displayRow int) *Violation {
	if key == "" {
		return nil
	}
	if _, ok := t.existing[field][key]; ok {
		return &Violation{
			Row:     displayRow,
			Field:   label,
			Message: fmt.Sprintf("row %d: %s %q already exists in the ledger", displayRow, label, key),
		}
	}
	if _, ok := t.processed[field][key]; ok {
		return &Violation{
			Row:     displayRow,
			Field:   label,
			Message: fmt.Sprintf("row %d: %s %q is duplicated within the file", displayRow, label, key),
		}
	}
	return nil
}

// Commit registers a key after its row was fully accepted and persisted.
// Rows that failed validation or insert never reach this point, so only the
// first clean occurrence of a key arms the within-file check.
func (t *DuplicateTracker) Commit(field, key string) {
	if key == "" {
		return
	}
	set := t.processed[field]
	if set == nil {
		set = make(map[string]struct{})
		t.processed[field] = set
	}
	set[key] = struct{}{}
}
