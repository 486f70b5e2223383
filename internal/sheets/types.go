package sheets

import (
	"context"

	"github.com/Veraticus/the-bills-must-flow/internal/export"
)

// ReportWriter publishes a report and returns the spreadsheet it wrote to.
type ReportWriter interface {
	Write(ctx context.Context, report *export.Report) (string, error)
}

// tab is one sheet of the published spreadsheet.
type tab struct {
	title  string
	values [][]any
}

func reportTabs(report *export.Report) []tab {
	return []tab{
		{title: export.SummarySheet, values: export.SummaryRows(report)},
		{title: export.BillsSheet, values: export.BillRows(report)},
	}
}
