package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	errBadDate   = errors.New("unrecognized date")
	errBadAmount = errors.New("unrecognized amount")
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

var amountDecoration = strings.NewReplacer("¥", "", "￥", "", "$", "", ",", "", " ", "", "\u00a0", "")

// cleanCell strips quotes and tabs and trims surrounding space.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "\t", "")
	return strings.TrimSpace(s)
}

// splitLine splits one CSV line, keeping commas inside double quotes.
func splitLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return fields
}

// parseDate accepts the known layouts and, for workbook cells, Excel serial numbers.
// The time of day is discarded.
func parseDate(raw string, allowSerial bool) (time.Time, error) {
	raw = cleanCell(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.DateOnly(t), nil
		}
	}

	if allowSerial {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return model.DateOnly(t), nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", errBadDate, raw)
}

// parseAmount strips currency decoration and returns the magnitude.
func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := amountDecoration.Replace(cleanCell(raw))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", errBadAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errBadAmount, raw)
	}
	return d.Abs(), nil
}

// buildNote joins counterparty and goods with "-" and marks the result as imported.
func buildNote(counterparty, goods string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{counterparty, goods} {
		if p = cleanCell(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-") + model.ImportedSuffix
}
