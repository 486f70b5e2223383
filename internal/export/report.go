// Package export builds per-category reports over stored records and writes
// them out as Excel workbooks.
package export

import (
	"sort"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// CategoryLister supplies the taxonomy order and emoji for a report.
type CategoryLister interface {
	Categories() []model.Category
}

// SubTotal is the sum of one subcategory.
type SubTotal struct {
	Name  string
	Total decimal.Decimal
	Count int
}

// CategoryTotal is the sum of one primary category and its subcategories.
// Records without a subcategory count towards the primary only.
type CategoryTotal struct {
	Name  string
	Emoji string
	Total decimal.Decimal
	Subs  []SubTotal
	Count int
}

// FlowTotal is the sum of one flow direction.
type FlowTotal struct {
	Flow       model.FlowDirection
	Total      decimal.Decimal
	Categories []CategoryTotal
	Count      int
}

// Report summarizes a set of records.
type Report struct {
	Start       time.Time
	End         time.Time
	GeneratedAt time.Time
	Net         decimal.Decimal
	Records     []model.Record
	Expense     FlowTotal
	Income      FlowTotal
}

// Flows returns expense then income.
func (r *Report) Flows() []FlowTotal {
	return []FlowTotal{r.Expense, r.Income}
}

// BuildReport totals records per flow, category and subcategory. Categories are
// listed in taxonomy order, followed by any category the records use that the
// taxonomy no longer knows, in name order. Records are sorted newest first.
func BuildReport(records []model.Record, taxonomy CategoryLister) *Report {
	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return a.OccurredOn.After(b.OccurredOn)
		}
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.After(b.RecordedAt)
		}
		return a.ID < b.ID
	})

	var known []model.Category
	if taxonomy != nil {
		known = taxonomy.Categories()
	}

	report := &Report{
		Records:     sorted,
		GeneratedAt: time.Now(),
		Expense:     buildFlow(model.FlowExpense, sorted, known),
		Income:      buildFlow(model.FlowIncome, sorted, known),
	}
	report.Net = report.Income.Total.Sub(report.Expense.Total)

	if len(sorted) > 0 {
		report.End = sorted[0].OccurredOn
		report.Start = sorted[len(sorted)-1].OccurredOn
	}
	return report
}

func buildFlow(flow model.FlowDirection, records []model.Record, known []model.Category) FlowTotal {
	ft := FlowTotal{Flow: flow, Total: decimal.Zero}

	byName := make(map[string]*CategoryTotal)
	subIndex := make(map[string]map[string]int)
	var order []string
	var extra []string

	for _, c := range known {
		if c.Flow != flow {
			continue
		}
		byName[c.Name] = &CategoryTotal{Name: c.Name, Emoji: c.Emoji, Total: decimal.Zero}
		order = append(order, c.Name)
	}

	for _, r := range records {
		if r.Flow != flow {
			continue
		}
		ft.Total = ft.Total.Add(r.Amount)
		ft.Count++

		ct, ok := byName[r.Category]
		if !ok {
			ct = &CategoryTotal{Name: r.Category, Emoji: model.DefaultEmoji, Total: decimal.Zero}
			byName[r.Category] = ct
			extra = append(extra, r.Category)
		}
		ct.Total = ct.Total.Add(r.Amount)
		ct.Count++

		if r.SubCategory == nil {
			continue
		}
		if subIndex[r.Category] == nil {
			subIndex[r.Category] = make(map[string]int)
		}
		i, ok := subIndex[r.Category][*r.SubCategory]
		if !ok {
			i = len(ct.Subs)
			subIndex[r.Category][*r.SubCategory] = i
			ct.Subs = append(ct.Subs, SubTotal{Name: *r.SubCategory, Total: decimal.Zero})
		}
		ct.Subs[i].Total = ct.Subs[i].Total.Add(r.Amount)
		ct.Subs[i].Count++
	}

	sort.Strings(extra)
	for _, name := range append(order, extra...) {
		ct := byName[name]
		if ct.Count == 0 {
			continue
		}
		sort.SliceStable(ct.Subs, func(i, j int) bool {
			return ct.Subs[i].Total.GreaterThan(ct.Subs[j].Total)
		})
		ft.Categories = append(ft.Categories, *ct)
	}
	return ft
}
