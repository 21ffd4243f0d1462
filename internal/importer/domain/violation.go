package importer

import "fmt"

// Violation is one row-scoped rule failure. Row is the 1-based display row
// number the end user sees in the spreadsheet, already offset for header and
// greeting rows. Violations accumulate; they never abort a batch.
type Violation struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Report is the aggregate outcome of one batch. Immutable once returned.
type Report struct {
	SuccessCount int         `json:"success_count"`
	ErrorCount   int         `json:"error_count"`
	Violations   []Violation `json:"violations"`
}

// RequiredViolation reports an empty identifying key.
func RequiredViolation(field string, displayRow int) Violation {
	return Violation{
		Row:     displayRow,
		Field:   field,
		Message: fmt.Sprintf("row %d: %s is empty", displayRow, field),
	}
}

// InsertViolation reports a persistence failure after validation passed.
func InsertViolation(displayRow int, err error) Violation {
	return Violation{
		Row:     displayRow,
		Message: fmt.Sprintf("row %d: record could not be saved: %v", displayRow, err),
	}
}
