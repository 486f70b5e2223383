package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/the-bills-must-flow/internal/engine"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewItems() []engine.ReviewItem {
	return []engine.ReviewItem{
		{
			Key:         "美团|支出",
			Description: "美团",
			Flow:        model.FlowExpense,
			Total:       decimal.RequireFromString("50"),
			Count:       2,
			Suggestion:  &model.Suggestion{Label: "餐饮 - 三餐", Fallback: "餐饮"},
		},
		{
			Key:         "北京鸿笙科技|支出",
			Description: "北京鸿笙科技",
			Flow:        model.FlowExpense,
			Total:       decimal.RequireFromString("2.25"),
			Count:       1,
			Suggestion:  &model.Suggestion{Label: "洗衣", IsNew: true, Fallback: "日常", Reason: "laundromat"},
			Novel:       true,
		},
		{
			Key:         "神秘商户|支出",
			Description: "神秘商户",
			Flow:        model.FlowExpense,
			Total:       decimal.RequireFromString("9"),
			Count:       1,
		},
	}
}

func TestPrompter_ReviewGroups(t *testing.T) {
	tests := []struct {
		want      map[string]engine.Decision
		name      string
		input     string
		wantStats ReviewStats
	}{
		{
			name:      "accept everything",
			input:     "a\na\ns\n",
			want:      map[string]engine.Decision{"北京鸿笙科技|支出": {Approved: boolPtr(true)}},
			wantStats: ReviewStats{Accepted: 2, Skipped: 1},
		},
		{
			name:      "reject novel",
			input:     "s\nr\ns\n",
			want:      map[string]engine.Decision{"北京鸿笙科技|支出": {Approved: boolPtr(false)}},
			wantStats: ReviewStats{Rejected: 1, Skipped: 2},
		},
		{
			name:  "custom categories",
			input: "c\n餐饮 - 零食\nc\n洗衣\nC\n医疗-药品\n",
			want: map[string]engine.Decision{
				"美团|支出":     {Category: "餐饮", SubCategory: "零食"},
				"北京鸿笙科技|支出": {Category: "洗衣"},
				"神秘商户|支出":   {Category: "医疗", SubCategory: "药品"},
			},
			wantStats: ReviewStats{Custom: 3},
		},
		{
			name:      "invalid choices are asked again",
			input:     "x\nr\n\na\nz\na\ns\n",
			want:      map[string]engine.Decision{"北京鸿笙科技|支出": {Approved: boolPtr(true)}},
			wantStats: ReviewStats{Accepted: 2, Skipped: 1},
		},
		{
			name:      "empty custom category is asked again",
			input:     "c\n\n餐饮\ns\ns\n",
			want:      map[string]engine.Decision{"美团|支出": {Category: "餐饮"}},
			wantStats: ReviewStats{Custom: 1, Skipped: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &out)

			got, err := p.ReviewGroups(context.Background(), reviewItems())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStats, p.Stats())
		})
	}
}

func TestPrompter_CustomHyphenatedCategory(t *testing.T) {
	known := map[string]bool{"Wi-Fi": true}
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("c\nWi-Fi\nc\nWi-Fi - 宽带\nc\n医疗-药品\n"), &out)
	p.SetCategoryLookup(func(name string) bool { return known[name] })

	got, err := p.ReviewGroups(context.Background(), reviewItems())
	require.NoError(t, err)
	assert.Equal(t, map[string]engine.Decision{
		"美团|支出":     {Category: "Wi-Fi"},
		"北京鸿笙科技|支出": {Category: "Wi-Fi", SubCategory: "宽带"},
		"神秘商户|支出":   {Category: "医疗", SubCategory: "药品"},
	}, got)
}

func TestPrompter_ReviewGroupsOutput(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("a\nr\ns\n"), &out)

	_, err := p.ReviewGroups(context.Background(), reviewItems())
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "[1/3] 美团")
	assert.Contains(t, output, "Total: ¥50.00")
	assert.Contains(t, output, "Accept suggestion")
	assert.Contains(t, output, "Create and use new category")
	assert.Contains(t, output, "Reject and use 日常")
	assert.Contains(t, output, "laundromat")
	assert.Contains(t, output, "No suggestion; defaults to 其他")
}

func TestPrompter_NoSuggestionOffersNoAccept(t *testing.T) {
	var out bytes.Buffer
	items := reviewItems()[2:]
	p := NewCLIPrompter(strings.NewReader("a\ns\n"), &out)

	got, err := p.ReviewGroups(context.Background(), items)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, out.String(), "Invalid choice")
}

func TestPrompter_InputEnds(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader("a\n"), &bytes.Buffer{})

	_, err := p.ReviewGroups(context.Background(), reviewItems())
	assert.ErrorIs(t, err, ErrInputTerminated)
}

func TestPrompter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewCLIPrompter(strings.NewReader("a\n"), &bytes.Buffer{})

	_, err := p.ReviewGroups(ctx, reviewItems())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "maybe\ny\n", want: true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p := NewCLIPrompter(strings.NewReader(tt.input), &bytes.Buffer{})
			got, err := p.Confirm(context.Background(), "Continue?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrompter_Empty(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(""), &out)

	got, err := p.ReviewGroups(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, out.String())
}

func boolPtr(b bool) *bool { return &b }
