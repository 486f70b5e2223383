package importer

import "strings"

var (
	timeTokens      = []string{"时间", "日期", "date", "time"}
	amountTokens    = []string{"金额", "amount"}
	directionTokens = []string{"收/支", "类型", "type", "direction"}
	goodsTokens     = []string{"商品", "说明", "description", "item"}
	partyTokens     = []string{"交易对方", "商户", "merchant", "counterparty", "payee"}
)

const orderNumberToken = "单号"

// columns holds the zero-based index of each mapped column, -1 when absent.
type columns struct {
	time         int
	amount       int
	direction    int
	goods        int
	counterparty int
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// isHeaderRow reports whether a row carries the time, amount and direction tokens.
func isHeaderRow(cells []string) bool {
	line := strings.ToLower(strings.Join(cells, ","))
	return containsAny(line, timeTokens) &&
		containsAny(line, amountTokens) &&
		containsAny(line, directionTokens)
}

// mapColumns assigns header cells to fields. Each cell takes the first rule it
// matches; when several cells match the same field the last one wins.
func mapColumns(header []string) columns {
	cols := columns{time: -1, amount: -1, direction: -1, goods: -1, counterparty: -1}
	for i, raw := range header {
		h := strings.ToLower(cleanCell(raw))
		switch {
		case containsAny(h, timeTokens):
			cols.time = i
		case containsAny(h, amountTokens):
			cols.amount = i
		case strings.Contains(h, "收/支") || h == "类型" || h == "type" || h == "direction":
			cols.direction = i
		case containsAny(h, goodsTokens) && !strings.Contains(h, orderNumberToken):
			cols.goods = i
		case containsAny(h, partyTokens) && !strings.Contains(h, orderNumberToken):
			cols.counterparty = i
		}
	}
	return cols
}

// complete reports whether the mandatory columns were found.
func (c columns) complete() bool {
	return c.time >= 0 && c.amount >= 0 && c.direction >= 0
}

func (c columns) maxRequired() int {
	return max(c.time, c.amount, c.direction)
}

// cell returns the cleaned value at index i, or "" when the row is too short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return cleanCell(row[i])
}
