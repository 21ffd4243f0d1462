package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cell normalizers. All of them are pure and total: bad input falls through
// unchanged (or empty) rather than failing, so a normalizer can never abort
// a row on its own.

// ToHalfWidth folds full-width alphanumerics and punctuation (U+FF01..U+FF5E)
// to their ASCII counterparts by fixed code-point subtraction. Other runes,
// including kana and kanji, pass through untouched.
func ToHalfWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0xFF01 && r <= 0xFF5E {
			r -= 0xFEE0
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizePhone produces the canonical identity form of a phone or SIM
// number: half-width folded, hyphens stripped. Used for duplicate comparison
// only; the display value keeps its formatting.
func NormalizePhone(s string) string {
	return strings.ReplaceAll(ToHalfWidth(s), "-", "")
}

// FormatPhoneNumber renders an 11-digit number as NNN-NNNN-NNNN. Anything
// that does not strip down to exactly 11 digits is returned unchanged;
// formatting is best-effort.
func FormatPhoneNumber(s string) string {
	digits := make([]byte, 0, len(s))
	for _, r := range ToHalfWidth(s) {
		if r >= '0' && r <= '9' {
			digits = append(digits, byte(r))
		}
	}
	if len(digits) != 11 {
		return s
	}
	d := string(digits)
	return d[:3] + "-" + d[3:7] + "-" + d[7:]
}

// NormalizeContractYear extracts the leading integer from a free-text
// contract duration ("2年契約", "３年", "2") and re-renders it as "<n>年".
// Non-numeric input yields "". Idempotent by construction.
func NormalizeContractYear(s string) string {
	folded := strings.TrimSpace(ToHalfWidth(s))
	end := 0
	for end < len(folded) && folded[end] >= '0' && folded[end] <= '9' {
		end++
	}
	if end == 0 {
		return ""
	}
	n, err := strconv.Atoi(folded[:end])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d年", n)
}

// excelEpochOffset is the number of days between the spreadsheet serial
// epoch (1899-12-30) and the Unix epoch.
const excelEpochOffset = 25569

// ExcelSerialToISODate converts a spreadsheet date serial to YYYY-MM-DD in
// UTC. Non-numeric cells pass through trimmed, with "/" replaced by "-" so
// hand-typed dates line up with serial-derived ones.
func ExcelSerialToISODate(cell string) string {
	trimmed := strings.TrimSpace(ToHalfWidth(cell))
	if trimmed == "" {
		return ""
	}
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return strings.ReplaceAll(trimmed, "/", "-")
	}
	unix := int64((serial - excelEpochOffset) * 86400)
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}
