package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrLegacyWorkbook is returned for workbooks excelize cannot open, usually BIFF .xls files.
var ErrLegacyWorkbook = errors.New("workbook could not be opened; re-save it as .xlsx")

const minWorkbookCells = 3

// ParseWorkbook reads the first sheet of an Excel workbook. Rows with fewer than
// three cells are ignored before and after the header.
func (p *Parser) ParseWorkbook(ctx context.Context, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return &Result{Format: FormatWorkbook}, fmt.Errorf("%w: %w", ErrLegacyWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Result{Format: FormatWorkbook}, ErrHeaderNotFound
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return &Result{Format: FormatWorkbook}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	result := &Result{Format: FormatWorkbook}
	var cols columns
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if len(row) < minWorkbookCells {
			continue
		}

		if !result.Recognized {
			if isHeaderRow(row) {
				if c := mapColumns(row); c.complete() {
					cols = c
					result.Recognized = true
				}
			}
			continue
		}

		record, reason := p.rowToRecord(row, cols, true)
		if record == nil {
			result.skip(i+1, strings.Join(row, ","), reason)
			continue
		}
		result.Records = append(result.Records, record)
	}

	if !result.Recognized {
		return result, ErrHeaderNotFound
	}
	return result, nil
}
