package interfaces

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	ledger "lendledger/internal/ledger/domain"
)

// BuildLedgerXLSX renders the records of one kind as a workbook: the fixed
// assignment columns first, then every descriptive field seen in the data
// in a stable order.
func BuildLedgerXLSX(kind ledger.Kind, records []ledger.Record) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "records"
	f.SetSheetName("Sheet1", sheet)

	fieldNames := collectFieldNames(records)
	headers := append([]string{"ID", "管理番号", "利用者コード", "拠点コード", "貸出日"}, fieldNames...)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, record := range records {
		values := []string{
			record.ID,
			record.ManagementNumber,
			record.Assignment.HolderCode,
			record.Assignment.LocationCode,
			record.Assignment.LendDate,
		}
		for _, name := range fieldNames {
			values = append(values, record.Field(name))
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildLedgerPDF renders a compact record table. Only ASCII-safe columns are
// included; the core fonts carry no CJK glyphs.
func BuildLedgerPDF(kind ledger.Kind, records []ledger.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Device Ledger: %s", kind))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", len(records)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(55, 6, "Management No.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Holder", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Location", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Lend Date", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range records {
		pdf.CellFormat(55, 6, record.ManagementNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, record.Assignment.HolderCode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, record.Assignment.LocationCode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, record.Assignment.LendDate, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func collectFieldNames(records []ledger.Record) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		for name := range record.Fields {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
