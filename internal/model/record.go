// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Well-known category and description values.
const (
	// UnclassifiedCategory is assigned to freshly imported records.
	UnclassifiedCategory = "未分类"
	// NoneSubCategory is how reviewers and the classifier spell "no subcategory".
	NoneSubCategory = "无"
	// CatchAllExpense receives expense records whose category cannot be resolved.
	CatchAllExpense = "其他"
	// CatchAllIncome receives income records whose category cannot be resolved.
	CatchAllIncome = "其他收入"
	// ImportedSuffix marks notes synthesized by the importer.
	ImportedSuffix = " (导入)"
	// UnspecifiedDescription stands in for records without a usable note.
	UnspecifiedDescription = "其他交易"
)

// ErrInvalidRecord is returned when a record violates its invariants.
var ErrInvalidRecord = errors.New("invalid record")

// FlowDirection indicates whether money left or entered the account.
type FlowDirection string

const (
	// FlowExpense is money spent.
	FlowExpense FlowDirection = "支出"
	// FlowIncome is money received.
	FlowIncome FlowDirection = "收入"
)

// ParseFlow normalizes a raw direction token. Anything not recognized as income is an expense.
func ParseFlow(raw string) FlowDirection {
	lower := strings.ToLower(raw)
	if strings.Contains(raw, string(FlowIncome)) || strings.Contains(lower, "income") {
		return FlowIncome
	}
	return FlowExpense
}

// Valid reports whether the direction is one of the two known values.
func (f FlowDirection) Valid() bool {
	return f == FlowExpense || f == FlowIncome
}

// IsIncome reports whether the direction is income.
func (f FlowDirection) IsIncome() bool {
	return f == FlowIncome
}

// CatchAll returns the last-resort category for this direction.
func (f FlowDirection) CatchAll() string {
	if f == FlowIncome {
		return CatchAllIncome
	}
	return CatchAllExpense
}

// Record is a single normalized income or expense entry.
type Record struct {
	OccurredOn  time.Time
	RecordedAt  time.Time
	Amount      decimal.Decimal
	SubCategory *string
	ID          string
	Category    string
	Flow        FlowDirection
	Note        string
}

// NewRecord creates an unclassified record. The amount is stored as a magnitude.
func NewRecord(amount decimal.Decimal, occurredOn time.Time, flow FlowDirection, note string) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Amount:     amount.Abs(),
		Category:   UnclassifiedCategory,
		OccurredOn: DateOnly(occurredOn),
		Flow:       flow,
		Note:       note,
		RecordedAt: time.Now(),
	}
}

// NewManualRecord creates a record that is already classified.
func NewManualRecord(amount decimal.Decimal, occurredOn time.Time, flow FlowDirection, category string, subCategory *string, note string) *Record {
	r := NewRecord(amount, occurredOn, flow, note)
	r.Category = category
	r.SetSubCategory(subCategory)
	return r
}

// SetSubCategory assigns the subcategory, treating empty and NoneSubCategory as none.
func (r *Record) SetSubCategory(sub *string) {
	r.SubCategory = NormalizeSub(sub)
}

// SubCategoryName returns the subcategory or an empty string.
func (r *Record) SubCategoryName() string {
	if r.SubCategory == nil {
		return ""
	}
	return *r.SubCategory
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRecord)
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidRecord, r.Amount)
	}
	if !r.Flow.Valid() {
		return fmt.Errorf("%w: unknown flow direction %q", ErrInvalidRecord, r.Flow)
	}
	if r.OccurredOn.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRecord)
	}
	return nil
}

// NormalizeSub trims a subcategory and maps empty or NoneSubCategory to nil.
func NormalizeSub(sub *string) *string {
	if sub == nil {
		return nil
	}
	s := strings.TrimSpace(*sub)
	if s == "" || s == NoneSubCategory {
		return nil
	}
	return &s
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
