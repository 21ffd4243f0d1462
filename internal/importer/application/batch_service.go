package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	importer "lendledger/internal/importer/domain"
	ledger "lendledger/internal/ledger/domain"
	"lendledger/internal/observability/metrics"
)

// Row is one positional data row from the row source. Cells may be wider
// than the declared headers; the bounds policy decides what that means.
type Row struct {
	Cells []string
}

// Populated counts non-blank cells.
func (r Row) Populated() int {
	n := 0
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// RowSource is the spreadsheet collaborator: an ordered header sequence and
// the data rows below it. The engine never touches the file format itself.
type RowSource interface {
	Headers() []string
	Rows() []Row
}

// RecordStore is the slice of the ledger store the import engine needs.
type RecordStore interface {
	ListByKind(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error)
	Insert(ctx context.Context, record *ledger.Record) error
}

// ImportService runs bulk import batches. One invocation processes one file
// in a single sequential pass; duplicate detection depends on commit order,
// so rows are never processed in parallel.
type ImportService struct {
	store  RecordStore
	logger *log.Logger
}

// NewImportService constructs the service.
func NewImportService(store RecordStore, logger *log.Logger) (*ImportService, error) {
	if store == nil {
		return nil, errors.New("import service: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ImportService{store: store, logger: logger}, nil
}

// RunImport ingests every row of the source under the given policy. Header
// and bounds contract failures abort with a typed error and zero effects;
// row-level violations accumulate into the report while the batch keeps
// going. Each row is committed independently: an insert failure after clean
// validation counts as a row error and never rolls back earlier rows.
func (s *ImportService) RunImport(ctx context.Context, policy importer.Policy, source RowSource) (importer.Report, error) {
	start := time.Now()
	report, err := s.runImport(ctx, policy, source)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveImportBatch(string(policy.Kind), result, time.Since(start))
	return report, err
}

func (s *ImportService) runImport(ctx context.Context, policy importer.Policy, source RowSource) (importer.Report, error) {
	if source == nil {
		return importer.Report{}, importer.ErrNilRowSource
	}
	if err := policy.Validate(); err != nil {
		return importer.Report{}, err
	}

	headers := trimAll(source.Headers())
	columns, err := checkHeaders(policy, headers)
	if err != nil {
		return importer.Report{}, err
	}

	rows := source.Rows()
	if policy.BoundsPolicy == importer.BoundsAbort {
		if err := checkBounds(rows, len(headers), policy.RowOffset); err != nil {
			return importer.Report{}, err
		}
	}

	tracker := importer.NewDuplicateTracker()
	if err := s.seedExistingKeys(ctx, policy, tracker); err != nil {
		return importer.Report{}, err
	}

	var report importer.Report
	for i, row := range rows {
		displayRow := i + policy.RowOffset

		cells := row.Cells
		if len(cells) > len(headers) {
			cells = cells[:len(headers)]
		}
		if (Row{Cells: cells}).Populated() == 0 {
			continue
		}

		violations, values, keys := s.processRow(policy, columns, cells, displayRow, tracker)
		if len(violations) == 0 {
			record := buildRecord(policy.Kind, values)
			if err := s.store.Insert(ctx, record); err != nil {
				s.logger.Printf("import %s row %d insert failed: %v", policy.Kind, displayRow, err)
				violations = append(violations, importer.InsertViolation(displayRow, err))
			}
		}

		if len(violations) > 0 {
			report.ErrorCount++
			report.Violations = append(report.Violations, violations...)
			metrics.IncImportRow(metrics.RowResultRejected)
			continue
		}

		report.SuccessCount++
		metrics.IncImportRow(metrics.RowResultAccepted)
		for field, key := range keys {
			tracker.Commit(field, key)
		}
	}

	return report, nil
}

// processRow normalizes, validates, and dedupe-checks one row. It returns
// every violation found (no short-circuit), the stored field values, and the
// identity keys to register if the row commits.
func (s *ImportService) processRow(
	policy importer.Policy,
	columns map[string]int,
	cells []string,
	displayRow int,
	tracker *importer.DuplicateTracker,
) ([]importer.Violation, map[string]string, map[string]string) {
	var violations []importer.Violation
	values := make(map[string]string, len(policy.Fields))
	keys := make(map[string]string)

	for _, spec := range policy.Fields {
		raw := ""
		if idx, ok := columns[spec.Header]; ok && idx < len(cells) {
			raw = strings.TrimSpace(cells[idx])
		}
		values[spec.Name] = spec.StoredValue(raw)

		if raw == "" {
			if spec.Required {
				violations = append(violations, importer.RequiredViolation(spec.Header, displayRow))
			}
			continue
		}
		for _, rule := range spec.Rules {
			if v := rule(spec.Header, raw, displayRow); v != nil {
				violations = append(violations, *v)
			}
		}
		if spec.Key {
			key := spec.KeyValue(raw)
			keys[spec.Name] = key
			if v := tracker.Check(spec.Name, spec.Header, key, displayRow); v != nil {
				violations = append(violations, *v)
			}
		}
	}

	return violations, values, keys
}

// seedExistingKeys loads the persisted identity sets once at batch start,
// normalized the same way incoming rows are.
func (s *ImportService) seedExistingKeys(ctx context.Context, policy importer.Policy, tracker *importer.DuplicateTracker) error {
	existing, err := s.store.ListByKind(ctx, policy.Kind)
	if err != nil {
		return err
	}
	for _, spec := range policy.KeyFields() {
		keys := make([]string, 0, len(existing))
		for i := range existing {
			value := existing[i].ManagementNumber
			if spec.Name != ledger.FieldManagementNumber {
				value = existing[i].Field(spec.Name)
			}
			if value == "" {
				continue
			}
			if spec.KeyNormalizer != nil {
				value = spec.KeyNormalizer(value)
			}
			keys = append(keys, value)
		}
		tracker.SeedExisting(spec.Name, keys)
	}
	return nil
}

// checkBounds scans the whole file for rows carrying non-blank cells beyond
// the declared columns. It runs before any row is processed, so an aborted
// batch leaves zero persisted rows.
func checkBounds(rows []Row, width, rowOffset int) error {
	for i, row := range rows {
		if len(row.Cells) <= width {
			continue
		}
		extra := Row{Cells: row.Cells[width:]}
		if extra.Populated() > 0 {
			return &importer.BoundsError{Row: i + rowOffset}
		}
	}
	return nil
}

// checkHeaders enforces the policy's header contract and maps each declared
// header to its column index in the file.
func checkHeaders(policy importer.Policy, headers []string) (map[string]int, error) {
	declared := make(map[string]struct{}, len(policy.Fields))
	for _, f := range policy.Fields {
		declared[f.Header] = struct{}{}
	}

	columns := make(map[string]int, len(headers))
	var unknown []string
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := declared[h]; ok {
			if _, dup := columns[h]; !dup {
				columns[h] = i
			}
			continue
		}
		unknown = append(unknown, h)
	}

	switch policy.HeaderPolicy {
	case importer.HeaderSubset:
		if len(unknown) > 0 {
			return nil, &importer.HeaderError{Unknown: unknown}
		}
	case importer.HeaderSuperset:
		var missing []string
		for _, f := range policy.Fields {
			if _, ok := columns[f.Header]; !ok {
				missing = append(missing, f.Header)
			}
		}
		if len(missing) > 0 {
			return nil, &importer.HeaderError{Missing: missing}
		}
	}
	return columns, nil
}

func buildRecord(kind ledger.Kind, values map[string]string) *ledger.Record {
	record := &ledger.Record{
		ID:     ledger.NewRecordID(),
		Kind:   kind,
		Fields: make(map[string]string, len(values)),
	}
	for name, value := range values {
		switch name {
		case ledger.FieldManagementNumber:
			record.ManagementNumber = value
		case ledger.FieldHolderCode:
			record.Assignment.HolderCode = value
		case ledger.FieldLocationCode:
			record.Assignment.LocationCode = value
		case ledger.FieldLendDate:
			record.Assignment.LendDate = value
		default:
			record.Fields[name] = value
		}
	}
	return record
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
