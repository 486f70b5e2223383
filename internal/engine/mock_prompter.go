package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrReviewCanceled is returned by MockPrompter when told to fail.
var ErrReviewCanceled = errors.New("review canceled")

// MockPrompter is a test implementation of the Prompter interface.
// It answers from preset decisions and records every call.
type MockPrompter struct {
	decisions map[string]Decision
	calls     [][]ReviewItem
	mu        sync.Mutex
	approve   bool
	fail      bool
}

// NewMockPrompter creates a mock prompter. With approveNew set every novel
// suggestion without a preset decision is approved.
func NewMockPrompter(approveNew bool) *MockPrompter {
	return &MockPrompter{
		decisions: make(map[string]Decision),
		approve:   approveNew,
	}
}

// SetDecision presets the answer for a group key.
func (m *MockPrompter) SetDecision(key string, d Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[key] = d
}

// FailNext makes the next review return ErrReviewCanceled.
func (m *MockPrompter) FailNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = true
}

// ReviewGroups returns the preset decisions for the items it was shown.
func (m *MockPrompter) ReviewGroups(_ context.Context, items []ReviewItem) (map[string]Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, items)
	if m.fail {
		m.fail = false
		return nil, ErrReviewCanceled
	}

	out := make(map[string]Decision, len(items))
	for _, item := range items {
		if d, ok := m.decisions[item.Key]; ok {
			out[item.Key] = d
			continue
		}
		if item.Novel {
			approved := m.approve
			out[item.Key] = Decision{Approved: &approved}
		}
	}
	return out, nil
}

// Calls returns the items shown in each review.
func (m *MockPrompter) Calls() [][]ReviewItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ReviewItem, len(m.calls))
	copy(out, m.calls)
	return out
}
