package model

import "strings"

// LabelSeparator joins a primary category and a subcategory in a label.
const LabelSeparator = " - "

// Suggestion is the classifier's answer for one classification group.
type Suggestion struct {
	Label    string `json:"suggestion"`
	Fallback string `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
	IsNew    bool   `json:"isNew"`
}

// Split returns the primary category and optional subcategory of the label.
func (s Suggestion) Split() (string, *string) {
	return SplitLabel(s.Label)
}

// SplitWith is Split with a category lookup; see SplitLabelWith.
func (s Suggestion) SplitWith(isCategory func(string) bool) (string, *string) {
	return SplitLabelWith(s.Label, isCategory)
}

// SplitLabel splits "Category - Subcategory" into its parts.
// A missing or NoneSubCategory subcategory yields nil. A bare dash
// ("餐饮-三餐") separates only when both sides are non-empty.
func SplitLabel(label string) (string, *string) {
	return SplitLabelWith(label, nil)
}

// SplitLabelWith is SplitLabel that keeps a label containing a bare dash whole
// when isCategory reports it as an existing category, so "Wi-Fi" stays one name.
func SplitLabelWith(label string, isCategory func(string) bool) (string, *string) {
	label = strings.TrimSpace(label)
	if primary, sub, found := strings.Cut(label, LabelSeparator); found {
		return strings.TrimSpace(primary), NormalizeSub(&sub)
	}

	if isCategory != nil && isCategory(label) {
		return label, nil
	}

	primary, sub, found := strings.Cut(label, "-")
	primary, sub = strings.TrimSpace(primary), strings.TrimSpace(sub)
	if !found || primary == "" || sub == "" {
		return label, nil
	}
	return primary, NormalizeSub(&sub)
}

// JoinLabel formats a primary category and optional subcategory as a label.
func JoinLabel(primary string, sub *string) string {
	if sub == nil || *sub == "" {
		return primary
	}
	return primary + LabelSeparator + *sub
}
