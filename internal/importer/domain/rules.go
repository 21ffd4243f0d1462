package importer

import (
	"fmt"
	"strings"
)

// Rule checks one raw cell value and yields at most one violation. Rules run
// against the raw (trimmed) value, before normalization, so the message can
// show the user exactly what they typed. Rules other than the required check
// treat empty values as clean.
type Rule func(field, value string, displayRow int) *Violation

// ASCIIRule rejects values containing any rune outside the printable ASCII
// range 0x20-0x7E. Used for terminal and model codes.
func ASCIIRule(field, value string, displayRow int) *Violation {
	if value == "" {
		return nil
	}
	for _, r := range value {
		if r < 0x20 || r > 0x7E {
			return &Violation{
				Row:     displayRow,
				Field:   field,
				Message: fmt.Sprintf("row %d: %s %q contains characters outside half-width ASCII (0x20-0x7E)", displayRow, field, value),
			}
		}
	}
	return nil
}

// NumericCodeRule rejects values outside [0-9-]+. Used for office and
// employee codes.
func NumericCodeRule(field, value string, displayRow int) *Violation {
	if value == "" {
		return nil
	}
	for _, r := range value {
		if r != '-' && (r < '0' || r > '9') {
			return &Violation{
				Row:     displayRow,
				Field:   field,
				Message: fmt.Sprintf("row %d: %s %q may only contain digits and hyphens", displayRow, field, value),
			}
		}
	}
	return nil
}

// IPShapeRule requires exactly four dot-separated groups of one to three
// digits. It deliberately does not range-check octets.
func IPShapeRule(field, value string, displayRow int) *Violation {
	if value == "" {
		return nil
	}
	bad := &Violation{
		Row:     displayRow,
		Field:   field,
		Message: fmt.Sprintf("row %d: %s %q is not in dotted address form (n.n.n.n)", displayRow, field, value),
	}
	groups := strings.Split(value, ".")
	if len(groups) != 4 {
		return bad
	}
	for _, g := range groups {
		if len(g) < 1 || len(g) > 3 {
			return bad
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return bad
			}
		}
	}
	return nil
}

// EnumRule builds a rule rejecting values outside the allow-list. The
// message enumerates the list so the importer can fix the cell in one pass.
func EnumRule(allowed []string) Rule {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	return func(field, value string, displayRow int) *Violation {
		if value == "" {
			return nil
		}
		if _, ok := set[value]; ok {
			return nil
		}
		return &Violation{
			Row:     displayRow,
			Field:   field,
			Message: fmt.Sprintf("row %d: %s %q must be one of: %s", displayRow, field, value, strings.Join(allowed, ", ")),
		}
	}
}
