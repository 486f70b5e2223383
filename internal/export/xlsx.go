package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names written by WriteXLSX.
const (
	SummarySheet = "Summary"
	BillsSheet   = "Bills"
)

const dateLayout = "2006-01-02"

// BillsHeader is the header row of the Bills sheet.
var BillsHeader = []any{"Date", "Flow", "Category", "Subcategory", "Amount", "Note"}

// WriteXLSX writes the report to path as a workbook with a Summary sheet and a
// Bills sheet.
func WriteXLSX(path string, report *Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(BillsSheet); err != nil {
		return fmt.Errorf("failed to create bills sheet: %w", err)
	}

	if err := writeRows(f, SummarySheet, SummaryRows(report)); err != nil {
		return err
	}
	if err := writeRows(f, BillsSheet, BillRows(report)); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(BillsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style bills header: %w", err)
	}
	if err := f.SetPanes(BillsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze bills header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// SummaryRows lays out the report totals. Amounts are float64 so spreadsheet
// tools treat them as numbers.
func SummaryRows(report *Report) [][]any {
	rows := [][]any{
		{"Bills Report", periodLabel(report)},
		{},
		{"Total Expense", report.Expense.Total.InexactFloat64()},
		{"Total Income", report.Income.Total.InexactFloat64()},
		{"Net", report.Net.InexactFloat64()},
		{"Records", len(report.Records)},
	}

	for _, ft := range report.Flows() {
		if len(ft.Categories) == 0 {
			continue
		}
		rows = append(rows, []any{}, []any{string(ft.Flow), "Subcategory", "Count", "Amount"})
		for _, ct := range ft.Categories {
			rows = append(rows, []any{ct.Emoji + " " + ct.Name, "", ct.Count, ct.Total.InexactFloat64()})
			for _, st := range ct.Subs {
				rows = append(rows, []any{"", st.Name, st.Count, st.Total.InexactFloat64()})
			}
		}
	}
	return rows
}

// BillRows returns the header and one row per record, newest first.
func BillRows(report *Report) [][]any {
	rows := make([][]any, 0, len(report.Records)+1)
	rows = append(rows, BillsHeader)
	for _, r := range report.Records {
		rows = append(rows, []any{
			r.OccurredOn.Format(dateLayout),
			string(r.Flow),
			r.Category,
			r.SubCategoryName(),
			r.Amount.InexactFloat64(),
			r.Note,
		})
	}
	return rows
}

func periodLabel(report *Report) string {
	if report.Start.IsZero() {
		return "no records"
	}
	return fmt.Sprintf("%s to %s", report.Start.Format(dateLayout), report.End.Format(dateLayout))
}
