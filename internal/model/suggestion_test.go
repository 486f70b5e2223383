package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLabelWith(t *testing.T) {
	known := map[string]bool{"Wi-Fi": true, "K-歌": true, "餐饮": true}
	isCategory := func(name string) bool { return known[name] }

	tests := []struct {
		name        string
		label       string
		lookup      func(string) bool
		wantPrimary string
		wantSub     string
	}{
		{name: "spaced separator", label: "餐饮 - 三餐", wantPrimary: "餐饮", wantSub: "三餐"},
		{name: "bare dash", label: "医疗-药品", wantPrimary: "医疗", wantSub: "药品"},
		{name: "none subcategory", label: "餐饮 - 无", wantPrimary: "餐饮"},
		{name: "no separator", label: " 交通 ", wantPrimary: "交通"},
		{name: "trailing dash stays whole", label: "餐饮-", wantPrimary: "餐饮-"},
		{name: "leading dash stays whole", label: "-三餐", wantPrimary: "-三餐"},
		{name: "hyphenated name splits without lookup", label: "Wi-Fi", wantPrimary: "Wi", wantSub: "Fi"},
		{name: "known hyphenated name", label: "Wi-Fi", lookup: isCategory, wantPrimary: "Wi-Fi"},
		{name: "known hyphenated name with chinese", label: "K-歌", lookup: isCategory, wantPrimary: "K-歌"},
		{name: "known hyphenated name with sub", label: "Wi-Fi - 宽带", lookup: isCategory, wantPrimary: "Wi-Fi", wantSub: "宽带"},
		{name: "unknown hyphenated name still splits", label: "医疗-药品", lookup: isCategory, wantPrimary: "医疗", wantSub: "药品"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, sub := SplitLabelWith(tt.label, tt.lookup)
			assert.Equal(t, tt.wantPrimary, primary)
			if tt.wantSub == "" {
				assert.Nil(t, sub)
				return
			}
			if assert.NotNil(t, sub) {
				assert.Equal(t, tt.wantSub, *sub)
			}
		})
	}
}

func TestJoinLabel(t *testing.T) {
	sub := "三餐"
	assert.Equal(t, "餐饮 - 三餐", JoinLabel("餐饮", &sub))
	assert.Equal(t, "餐饮", JoinLabel("餐饮", nil))
}
