package importer

import (
	"fmt"

	ledger "lendledger/internal/ledger/domain"
)

// HeaderPolicy selects the header contract check applied before any row.
type HeaderPolicy string

const (
	// HeaderSubset aborts when the file declares a header the policy does
	// not know.
	HeaderSubset HeaderPolicy = "subset"
	// HeaderSuperset aborts when a policy header is missing from the file.
	HeaderSuperset HeaderPolicy = "superset"
)

// IsValid reports whether the value is a known header policy.
func (p HeaderPolicy) IsValid() bool {
	return p == HeaderSubset || p == HeaderSuperset
}

// BoundsPolicy selects how rows wider than the declared headers are handled.
type BoundsPolicy string

const (
	// BoundsAbort fails the whole batch on the first offending row.
	BoundsAbort BoundsPolicy = "abort"
	// BoundsIgnore silently drops the extra cells.
	BoundsIgnore BoundsPolicy = "ignore"
)

// IsValid reports whether the value is a known bounds policy.
func (p BoundsPolicy) IsValid() bool {
	return p == BoundsAbort || p == BoundsIgnore
}

// Normalizer converts a raw cell into its stored canonical form.
type Normalizer func(string) string

// FieldSpec describes one spreadsheet column: where it comes from, what the
// stored field is called, how it normalizes, and which rules guard it. Key
// fields participate in duplicate detection; KeyNormalizer, when set,
// derives the identity form used for comparison (e.g. hyphen-stripped phone
// numbers) while Normalizer still produces the stored display form.
type FieldSpec struct {
	Header        string
	Name          string
	Key           bool
	Required      bool
	Normalizer    Normalizer
	KeyNormalizer Normalizer
	Rules         []Rule
}

// StoredValue applies the display normalizer.
func (f FieldSpec) StoredValue(raw string) string {
	if f.Normalizer == nil {
		return raw
	}
	return f.Normalizer(raw)
}

// KeyValue applies the identity normalizer, falling back to the stored form.
func (f FieldSpec) KeyValue(raw string) string {
	if f.KeyNormalizer != nil {
		return f.KeyNormalizer(raw)
	}
	return f.StoredValue(raw)
}

// Policy is the per-kind import configuration: the declared columns, the
// header and bounds contracts, and the margin between 0-based data indexes
// and the row numbers shown to the user.
type Policy struct {
	Kind         ledger.Kind
	HeaderPolicy HeaderPolicy
	BoundsPolicy BoundsPolicy
	RowOffset    int
	Fields       []FieldSpec
}

// Validate checks the policy is runnable.
func (p Policy) Validate() error {
	if !p.Kind.IsValid() {
		return ledger.ErrInvalidKind
	}
	if !p.HeaderPolicy.IsValid() {
		return fmt.Errorf("%w: header policy %q", ErrInvalidPolicy, p.HeaderPolicy)
	}
	if !p.BoundsPolicy.IsValid() {
		return fmt.Errorf("%w: bounds policy %q", ErrInvalidPolicy, p.BoundsPolicy)
	}
	if p.RowOffset < 1 {
		return fmt.Errorf("%w: row offset %d", ErrInvalidPolicy, p.RowOffset)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidPolicy)
	}
	seen := make(map[string]struct{}, len(p.Fields))
	keys := 0
	for _, f := range p.Fields {
		if f.Header == "" || f.Name == "" {
			return fmt.Errorf("%w: field with empty header or name", ErrInvalidPolicy)
		}
		if _, dup := seen[f.Header]; dup {
			return fmt.Errorf("%w: duplicate header %q", ErrInvalidPolicy, f.Header)
		}
		seen[f.Header] = struct{}{}
		if f.Key {
			keys++
		}
	}
	if keys == 0 {
		return fmt.Errorf("%w: no key field", ErrInvalidPolicy)
	}
	return nil
}

// KeyFields returns the specs participating in duplicate detection.
func (p Policy) KeyFields() []FieldSpec {
	var out []FieldSpec
	for _, f := range p.Fields {
		if f.Key {
			out = append(out, f)
		}
	}
	return out
}

// Headers returns the declared header labels in column order.
func (p Policy) Headers() []string {
	out := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		out = append(out, f.Header)
	}
	return out
}

// AllowLists carries the per-deployment enumeration values. They arrive from
// configuration, not code, so one engine serves every kind.
type AllowLists struct {
	Carriers []string
	Statuses []string
}

// DefaultPolicies builds the built-in per-kind policies with the supplied
// allow-lists. The descriptor tables mirror the ledger spreadsheets each
// kind is imported from.
func DefaultPolicies(lists AllowLists) map[ledger.Kind]Policy {
	carrier := EnumRule(lists.Carriers)
	status := EnumRule(lists.Statuses)

	managementNumber := FieldSpec{
		Header: "管理番号", Name: ledger.FieldManagementNumber,
		Key: true, Required: true, Rules: []Rule{ASCIIRule},
	}
	holder := FieldSpec{
		Header: "利用者コード", Name: ledger.FieldHolderCode,
		Rules: []Rule{NumericCodeRule},
	}
	location := FieldSpec{
		Header: "拠点コード", Name: ledger.FieldLocationCode,
		Rules: []Rule{NumericCodeRule},
	}
	lendDate := FieldSpec{
		Header: "貸出日", Name: ledger.FieldLendDate,
		Normalizer: ExcelSerialToISODate,
	}
	terminalCode := FieldSpec{
		Header: "端末コード", Name: "terminal_code",
		Rules: []Rule{ASCIIRule},
	}
	contractYears := FieldSpec{
		Header: "契約年数", Name: "contract_years",
		Normalizer: NormalizeContractYear,
	}
	contractStart := FieldSpec{
		Header: "契約開始日", Name: "contract_start",
		Normalizer: ExcelSerialToISODate,
	}
	carrierField := FieldSpec{
		Header: "キャリア", Name: "carrier", Rules: []Rule{carrier},
	}
	statusField := FieldSpec{
		Header: "ステータス", Name: "status", Rules: []Rule{status},
	}
	phone := FieldSpec{
		Header: "電話番号", Name: "phone_number",
		Normalizer: FormatPhoneNumber, KeyNormalizer: NormalizePhone,
	}
	sim := FieldSpec{
		Header: "SIM番号", Name: "sim_number",
		Normalizer: FormatPhoneNumber, KeyNormalizer: NormalizePhone,
	}

	asKey := func(f FieldSpec) FieldSpec {
		f.Key = true
		f.Required = true
		return f
	}

	return map[ledger.Kind]Policy{
		ledger.KindTablet: {
			Kind:         ledger.KindTablet,
			HeaderPolicy: HeaderSubset,
			BoundsPolicy: BoundsAbort,
			RowOffset:    2,
			Fields: []FieldSpec{
				managementNumber,
				terminalCode,
				{Header: "機種", Name: "model", Rules: []Rule{ASCIIRule}},
				carrierField,
				contractYears,
				contractStart,
				holder,
				location,
				lendDate,
				statusField,
			},
		},
		ledger.KindIPhone: {
			Kind:         ledger.KindIPhone,
			HeaderPolicy: HeaderSuperset,
			BoundsPolicy: BoundsIgnore,
			RowOffset:    3,
			Fields: []FieldSpec{
				managementNumber,
				asKey(terminalCode),
				asKey(phone),
				asKey(sim),
				carrierField,
				contractYears,
				holder,
				location,
				lendDate,
				statusField,
			},
		},
		ledger.KindFeaturePhone: {
			Kind:         ledger.KindFeaturePhone,
			HeaderPolicy: HeaderSuperset,
			BoundsPolicy: BoundsAbort,
			RowOffset:    2,
			Fields: []FieldSpec{
				managementNumber,
				asKey(phone),
				carrierField,
				holder,
				location,
				lendDate,
				statusField,
			},
		},
		ledger.KindRouter: {
			Kind:         ledger.KindRouter,
			HeaderPolicy: HeaderSubset,
			BoundsPolicy: BoundsIgnore,
			RowOffset:    2,
			Fields: []FieldSpec{
				managementNumber,
				asKey(terminalCode),
				carrierField,
				contractYears,
				holder,
				location,
				lendDate,
				statusField,
			},
		},
		ledger.KindAddress: {
			Kind:         ledger.KindAddress,
			HeaderPolicy: HeaderSubset,
			BoundsPolicy: BoundsAbort,
			RowOffset:    2,
			Fields: []FieldSpec{
				{
					Header: "ネットワークアドレス", Name: ledger.FieldManagementNumber,
					Key: true, Required: true, Rules: []Rule{IPShapeRule},
				},
				{Header: "サブネットマスク", Name: "subnet_mask", Rules: []Rule{IPShapeRule}},
				{Header: "開始IP", Name: "start_ip", Rules: []Rule{IPShapeRule}},
				{Header: "終了IP", Name: "end_ip", Rules: []Rule{IPShapeRule}},
				{Header: "用途", Name: "purpose"},
				location,
			},
		},
	}
}
