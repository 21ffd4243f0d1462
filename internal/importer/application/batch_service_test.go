package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	importer "lendledger/internal/importer/domain"
	ledger "lendledger/internal/ledger/domain"
	"lendledger/internal/ledger/infrastructure/memory"
)

type stubSource struct {
	headers []string
	rows    []Row
}

func (s *stubSource) Headers() []string { return s.headers }
func (s *stubSource) Rows() []Row       { return s.rows }

func newSource(headers []string, cells ...[]string) *stubSource {
	src := &stubSource{headers: headers}
	for _, c := range cells {
		src.rows = append(src.rows, Row{Cells: c})
	}
	return src
}

func testPolicies() map[ledger.Kind]importer.Policy {
	return importer.DefaultPolicies(importer.AllowLists{
		Carriers: []string{"ドコモ", "au", "ソフトバンク", "楽天モバイル"},
		Statuses: []string{"利用中", "保管中", "故障", "返却済"},
	})
}

func newTestService(t *testing.T, store RecordStore) *ImportService {
	t.Helper()
	service, err := NewImportService(store, log.New(&strings.Builder{}, "", 0))
	if err != nil {
		t.Fatalf("NewImportService: %v", err)
	}
	return service
}

func TestRunImportCleanRows(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード", "キャリア", "利用者コード", "貸出日"},
		[]string{"T-001", "TB01", "ドコモ", "100", "44927"},
		[]string{"T-002", "TB02", "au", "101", "2023/04/01"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 2 || report.ErrorCount != 0 {
		t.Fatalf("report = %+v", report)
	}

	records, err := store.ListByKind(context.Background(), ledger.KindTablet)
	if err != nil {
		t.Fatalf("ListByKind: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("stored %d records, want 2", len(records))
	}
	if records[0].ManagementNumber != "T-001" {
		t.Fatalf("management number = %q", records[0].ManagementNumber)
	}
	if records[0].Assignment.LendDate != "2023-01-01" {
		t.Fatalf("lend date = %q, want serial-converted date", records[0].Assignment.LendDate)
	}
	if records[1].Assignment.LendDate != "2023-04-01" {
		t.Fatalf("lend date = %q, want slash-folded date", records[1].Assignment.LendDate)
	}
	if records[0].Assignment.HolderCode != "100" {
		t.Fatalf("holder code = %q", records[0].Assignment.HolderCode)
	}
}

func TestRunImportMixedRows(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード", "キャリア"},
		[]string{"T-001", "TB01", "ドコモ"},
		[]string{"T-002", "ＴＢ０２", "au"},
		[]string{"T-003", "TB03", "楽天"},
		[]string{"T-004", "TB04", "au"},
		[]string{"T-005", "TB05", ""},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 3 || report.ErrorCount != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Violations) != 2 {
		t.Fatalf("violations = %+v", report.Violations)
	}
	// Data index 1 and 2, displayed with the tablet offset of 2.
	if report.Violations[0].Row != 3 || report.Violations[1].Row != 4 {
		t.Fatalf("violation rows = %d, %d", report.Violations[0].Row, report.Violations[1].Row)
	}

	records, _ := store.ListByKind(context.Background(), ledger.KindTablet)
	if len(records) != 3 {
		t.Fatalf("stored %d records, want 3", len(records))
	}
}

func TestRunImportEmptyKeyAndDuplicateTally(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"T-001", "TB01"},
		[]string{"T-002", "TB02"},
		[]string{"", "TB03"},
		[]string{"T-004", "TB04"},
		[]string{"T-001", "TB05"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 3 || report.ErrorCount != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Violations) != 2 {
		t.Fatalf("violations = %+v", report.Violations)
	}
	if report.Violations[0].Row != 4 {
		t.Fatalf("empty key row = %d, want 4", report.Violations[0].Row)
	}
	if !strings.Contains(report.Violations[0].Message, "管理番号 is empty") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}
	if report.Violations[1].Row != 6 {
		t.Fatalf("duplicate row = %d, want 6", report.Violations[1].Row)
	}
	if !strings.Contains(report.Violations[1].Message, "is duplicated within the file") {
		t.Fatalf("message = %s", report.Violations[1].Message)
	}
}

func TestRunImportRequiredKeyMissing(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"", "TB01"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.ErrorCount != 1 || report.SuccessCount != 0 {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(report.Violations[0].Message, "管理番号 is empty") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}
}

func TestRunImportUnknownHeaderAborts(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "謎の列"},
		[]string{"T-001", "x"},
	)

	_, err := service.RunImport(context.Background(), policy, source)
	var headerErr *importer.HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("err = %v, want HeaderError", err)
	}
	if len(headerErr.Unknown) != 1 || headerErr.Unknown[0] != "謎の列" {
		t.Fatalf("unknown = %v", headerErr.Unknown)
	}
	records, _ := store.ListByKind(context.Background(), ledger.KindTablet)
	if len(records) != 0 {
		t.Fatalf("store touched on aborted batch: %d records", len(records))
	}
}

func TestRunImportMissingHeaderAborts(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindFeaturePhone]

	// Superset contract: every declared header must be present.
	source := newSource(
		[]string{"管理番号", "電話番号", "キャリア", "利用者コード", "拠点コード", "貸出日"},
		[]string{"F-001", "09012345678", "", "", "", ""},
	)

	_, err := service.RunImport(context.Background(), policy, source)
	var headerErr *importer.HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("err = %v, want HeaderError", err)
	}
	if len(headerErr.Missing) != 1 || headerErr.Missing[0] != "ステータス" {
		t.Fatalf("missing = %v", headerErr.Missing)
	}
}

func TestRunImportBoundsAbort(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"T-001", "TB01"},
		[]string{"T-002", "TB02", "overflow"},
	)

	_, err := service.RunImport(context.Background(), policy, source)
	var boundsErr *importer.BoundsError
	if !errors.As(err, &boundsErr) {
		t.Fatalf("err = %v, want BoundsError", err)
	}
	if boundsErr.Row != 3 {
		t.Fatalf("bounds row = %d, want 3", boundsErr.Row)
	}
	// The offending row is behind a clean one; the abort must still leave
	// zero persisted rows.
	records, _ := store.ListByKind(context.Background(), ledger.KindTablet)
	if len(records) != 0 {
		t.Fatalf("bounds abort persisted %d rows, want 0 (first = %q)", len(records), records[0].ManagementNumber)
	}
}

func TestRunImportBoundsAbortIgnoresBlankOverflow(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"T-001", "TB01", "", "  "},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunImportBoundsIgnore(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindRouter]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"R-001", "RT01", "overflow"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunImportBlankRowsSkipped(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号", "端末コード"},
		[]string{"", ""},
		[]string{"T-001", "TB01"},
		[]string{"   ", ""},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 0 {
		t.Fatalf("blank rows should not count: %+v", report)
	}
}

func TestRunImportExistingDuplicate(t *testing.T) {
	store := memory.NewStore()
	seeded := &ledger.Record{
		ID:               ledger.NewRecordID(),
		Kind:             ledger.KindTablet,
		ManagementNumber: "T-001",
	}
	if err := store.Insert(context.Background(), seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]
	source := newSource(
		[]string{"管理番号"},
		[]string{"T-001"},
		[]string{"T-002"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(report.Violations[0].Message, "already exists in the ledger") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}
}

func TestRunImportWithinFileDuplicate(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号"},
		[]string{"T-010"},
		[]string{"T-010"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(report.Violations[0].Message, "is duplicated within the file") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}
	if report.Violations[0].Row != 3 {
		t.Fatalf("violation row = %d, want 3", report.Violations[0].Row)
	}
}

func TestRunImportPhoneIdentityDuplicate(t *testing.T) {
	store := memory.NewStore()
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindFeaturePhone]

	headers := []string{"管理番号", "電話番号", "キャリア", "利用者コード", "拠点コード", "貸出日", "ステータス"}
	source := newSource(
		headers,
		[]string{"F-001", "090-1234-5678", "", "", "", "", ""},
		[]string{"F-002", "０９０１２３４５６７８", "", "", "", "", ""},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 1 || report.ErrorCount != 1 {
		t.Fatalf("hyphenation and width should not change identity: %+v", report)
	}
	if !strings.Contains(report.Violations[0].Message, "is duplicated within the file") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}

	records, _ := store.ListByKind(context.Background(), ledger.KindFeaturePhone)
	if len(records) != 1 {
		t.Fatalf("stored %d records, want 1", len(records))
	}
	if got := records[0].Field("phone_number"); got != "090-1234-5678" {
		t.Fatalf("stored phone = %q, want formatted display form", got)
	}
}

type failingStore struct {
	*memory.Store
	failOn string
}

func (s *failingStore) Insert(ctx context.Context, record *ledger.Record) error {
	if record.ManagementNumber == s.failOn {
		return fmt.Errorf("connection reset")
	}
	return s.Store.Insert(ctx, record)
}

func TestRunImportInsertFailureContinues(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), failOn: "T-002"}
	service := newTestService(t, store)
	policy := testPolicies()[ledger.KindTablet]

	source := newSource(
		[]string{"管理番号"},
		[]string{"T-001"},
		[]string{"T-002"},
		[]string{"T-003"},
	)

	report, err := service.RunImport(context.Background(), policy, source)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if report.SuccessCount != 2 || report.ErrorCount != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(report.Violations[0].Message, "record could not be saved") {
		t.Fatalf("message = %s", report.Violations[0].Message)
	}
	if report.Violations[0].Row != 3 {
		t.Fatalf("violation row = %d, want 3", report.Violations[0].Row)
	}
}

func TestRunImportNilSource(t *testing.T) {
	service := newTestService(t, memory.NewStore())
	policy := testPolicies()[ledger.KindTablet]

	if _, err := service.RunImport(context.Background(), policy, nil); !errors.Is(err, importer.ErrNilRowSource) {
		t.Fatalf("err = %v, want ErrNilRowSource", err)
	}
}

func TestRunImportInvalidPolicy(t *testing.T) {
	service := newTestService(t, memory.NewStore())

	_, err := service.RunImport(context.Background(), importer.Policy{}, newSource([]string{"管理番号"}))
	if err == nil {
		t.Fatal("invalid policy accepted")
	}
}
