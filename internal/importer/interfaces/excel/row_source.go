package excel

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"

	importerapp "lendledger/internal/importer/application"
)

// RowSource adapts an uploaded xlsx workbook to the import engine's row
// source contract: the first row of the first sheet is the header sequence,
// everything below it is data. The engine itself never sees the file format.
type RowSource struct {
	headers []string
	rows    []importerapp.Row
}

// NewRowSource reads the workbook into memory. Import batches are small
// enough that streaming is not worth the complexity.
func NewRowSource(r io.Reader) (*RowSource, error) {
	if r == nil {
		return nil, errors.New("excel row source: nil reader")
	}
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("excel row source: workbook has no sheets")
	}
	raw, err := file.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &RowSource{}, nil
	}

	source := &RowSource{headers: raw[0]}
	for _, cells := range raw[1:] {
		source.rows = append(source.rows, importerapp.Row{Cells: cells})
	}
	return source, nil
}

// Headers returns the declared header sequence.
func (s *RowSource) Headers() []string { return s.headers }

// Rows returns the data rows in sheet order.
func (s *RowSource) Rows() []importerapp.Row { return s.rows }
