package taxonomy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// MemoryStore keeps the taxonomy in memory. Dry-run imports copy the live tree into
// one so that registrations made during review never reach the database.
type MemoryStore struct {
	categories []model.Category
	hints      []string
	mu         sync.Mutex
}

// NewMemoryStore creates a store preloaded with categories and hints.
func NewMemoryStore(categories []model.Category, hints []string) *MemoryStore {
	m := &MemoryStore{hints: append([]string(nil), hints...)}
	for _, cat := range categories {
		cat.Subcategories = append([]model.Subcategory(nil), cat.Subcategories...)
		m.categories = append(m.categories, cat)
	}
	return m
}

func (m *MemoryStore) find(name string) int {
	for i, cat := range m.categories {
		if cat.Name == name {
			return i
		}
	}
	return -1
}

// LoadCategories implements Store.
func (m *MemoryStore) LoadCategories(_ context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Category, len(m.categories))
	for i, cat := range m.categories {
		cat.Subcategories = append([]model.Subcategory(nil), cat.Subcategories...)
		out[i] = cat
	}
	return out, nil
}

// SaveCategories implements Store.
func (m *MemoryStore) SaveCategories(_ context.Context, categories []model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cat := range categories {
		if m.find(cat.Name) >= 0 {
			continue
		}
		cat.Subcategories = append([]model.Subcategory(nil), cat.Subcategories...)
		m.categories = append(m.categories, cat)
	}
	return nil
}

// SaveSubcategory implements Store.
func (m *MemoryStore) SaveSubcategory(_ context.Context, parent string, sub model.Subcategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(parent)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, parent)
	}
	if !m.categories[i].HasSub(sub.Name) {
		m.categories[i].Subcategories = append(m.categories[i].Subcategories, sub)
	}
	return nil
}

// DeleteCategory implements Store. No records live here, so zero are removed.
func (m *MemoryStore) DeleteCategory(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(name)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	m.categories = append(m.categories[:i], m.categories[i+1:]...)
	return 0, nil
}

// DeleteSubcategory implements Store.
func (m *MemoryStore) DeleteSubcategory(_ context.Context, parent, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(parent)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, parent)
	}
	subs := m.categories[i].Subcategories[:0]
	for _, sub := range m.categories[i].Subcategories {
		if sub.Name != name {
			subs = append(subs, sub)
		}
	}
	m.categories[i].Subcategories = subs
	return 0, nil
}

// ListHints implements Store.
func (m *MemoryStore) ListHints(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.hints...), nil
}

// AddHint implements Store.
func (m *MemoryStore) AddHint(_ context.Context, hint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hint = strings.TrimSpace(hint)
	if hint == "" {
		return false, nil
	}
	for _, h := range m.hints {
		if h == hint {
			return false, nil
		}
	}
	m.hints = append(m.hints, hint)
	return true, nil
}

// RemoveHint implements Store.
func (m *MemoryStore) RemoveHint(_ context.Context, hint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hint = strings.TrimSpace(hint)
	for i, h := range m.hints {
		if h == hint {
			m.hints = append(m.hints[:i], m.hints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("hint %q not found", hint)
}
