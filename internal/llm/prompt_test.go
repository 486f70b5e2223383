package llm

import (
	"testing"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	var snapshot model.TaxonomySnapshot
	snapshot.Expense.Add("餐饮", []string{"三餐", "零食"})
	snapshot.Expense.Add("日常", nil)
	snapshot.Income.Add("工资", nil)

	req := service.BatchRequest{
		Taxonomy: snapshot,
		Items: []service.BatchItem{
			{Token: "美团|支出", Description: "美团-村上一屋 (导入)", Amount: decimal.RequireFromString("25.5"), Flow: model.FlowExpense},
			{Token: "公司|收入", Description: "公司-十月工资 (导入)", Amount: decimal.RequireFromString("8000"), Flow: model.FlowIncome},
		},
		Personalizations: []string{"瑞幸 is coffee, file under 餐饮 - 零食", "  "},
	}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, `支出树 (Expense): {"餐饮":["三餐","零食"],"日常":[]}`)
	assert.Contains(t, prompt, `收入树 (Income): {"工资":[]}`)
	assert.Contains(t, prompt, "- 瑞幸 is coffee, file under 餐饮 - 零食")
	assert.Contains(t, prompt, `"amount":-25.5`)
	assert.Contains(t, prompt, `"amount":8000`)
	assert.Contains(t, prompt, `"unique_id":"美团|支出"`)
	assert.Contains(t, prompt, `"type_hint":"收入"`)
}

func TestFormatHints(t *testing.T) {
	assert.Equal(t, "无", formatHints(nil))
	assert.Equal(t, "无", formatHints([]string{" ", ""}))
	assert.Equal(t, "- a\n- b", formatHints([]string{"a", " b "}))
}
