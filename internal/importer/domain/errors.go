package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilRowSource is returned when a batch runs without a row source.
	ErrNilRowSource = errors.New("importer: nil row source")
	// ErrUnknownKind is returned when no policy is declared for a kind.
	ErrUnknownKind = errors.New("importer: unknown kind")
	// ErrInvalidPolicy is returned for a malformed policy value.
	ErrInvalidPolicy = errors.New("importer: invalid policy")
)

// HeaderError aborts a batch before any row effect: the file's declared
// headers break the policy's contract.
type HeaderError struct {
	Unknown []string
	Missing []string
}

func (e *HeaderError) Error() string {
	switch {
	case len(e.Unknown) > 0:
		return fmt.Sprintf("importer: unknown headers: %s", strings.Join(e.Unknown, ", "))
	case len(e.Missing) > 0:
		return fmt.Sprintf("importer: missing required headers: %s", strings.Join(e.Missing, ", "))
	}
	return "importer: header contract violated"
}

// BoundsError aborts a batch on the first row carrying non-blank cells
// beyond the declared columns, under the abort bounds policy.
type BoundsError struct {
	Row int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("importer: row %d has values beyond the declared columns", e.Row)
}
