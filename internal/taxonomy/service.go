// Package taxonomy owns the two-level category tree and the classifier hints.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
)

// Taxonomy errors.
var (
	ErrProtected       = errors.New("built-in categories cannot be deleted")
	ErrUnknownCategory = errors.New("unknown category")
)

// Store persists categories and hints.
type Store interface {
	LoadCategories(ctx context.Context) ([]model.Category, error)
	SaveCategories(ctx context.Context, categories []model.Category) error
	SaveSubcategory(ctx context.Context, parent string, sub model.Subcategory) error
	DeleteCategory(ctx context.Context, name string) (int, error)
	DeleteSubcategory(ctx context.Context, parent, name string) (int, error)
	ListHints(ctx context.Context) ([]string, error)
	AddHint(ctx context.Context, hint string) (bool, error)
	RemoveHint(ctx context.Context, hint string) error
}

// Service is the process-wide category tree. Reads are served from memory and
// every registration is written through to the store before it becomes visible.
type Service struct {
	store      Store
	logger     *slog.Logger
	index      map[string]int
	categories []model.Category
	mu         sync.RWMutex
}

var _ service.Taxonomy = (*Service)(nil)

// New creates a taxonomy service backed by store.
func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		index:  make(map[string]int),
	}
}

// Load reads the tree from the store, seeding the built-in categories on first use
// and restoring any missing catch-all category.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.store.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	if len(cats) == 0 {
		cats = Defaults()
		if err := s.store.SaveCategories(ctx, cats); err != nil {
			return fmt.Errorf("failed to seed default categories: %w", err)
		}
		s.logger.Info("Seeded default categories", "count", len(cats))
	}

	s.categories = cats
	s.reindex()

	for _, flow := range []model.FlowDirection{model.FlowExpense, model.FlowIncome} {
		if _, ok := s.index[flow.CatchAll()]; ok {
			continue
		}
		if err := s.registerPrimaryLocked(ctx, flow.CatchAll(), flow); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) reindex() {
	s.index = make(map[string]int, len(s.categories))
	for i, cat := range s.categories {
		s.index[cat.Name] = i
	}
}

// Categories returns a copy of the full tree in order.
func (s *Service) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Category, len(s.categories))
	for i, cat := range s.categories {
		cat.Subcategories = append([]model.Subcategory(nil), cat.Subcategories...)
		out[i] = cat
	}
	return out
}

// ListPrimary returns every primary category with its direction.
func (s *Service) ListPrimary() []service.PrimaryCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]service.PrimaryCategory, 0, len(s.categories))
	for _, cat := range s.categories {
		out = append(out, service.PrimaryCategory{Name: cat.Name, IsIncome: cat.Flow.IsIncome()})
	}
	return out
}

// ListSub returns the subcategories of parent, or nil for an unknown parent.
func (s *Service) ListSub(parent string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[parent]
	if !ok {
		return nil
	}
	return s.categories[i].SubNames()
}

// Exists reports whether name is a primary category.
func (s *Service) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// ExistsSub reports whether parent has the subcategory name.
func (s *Service) ExistsSub(parent, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[parent]
	return ok && s.categories[i].HasSub(name)
}

// FlowOf returns the direction of a primary category.
func (s *Service) FlowOf(name string) (model.FlowDirection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.categories[i].Flow, true
}

// RegisterPrimary adds a primary category. Existing names are a no-op.
func (s *Service) RegisterPrimary(ctx context.Context, name string, isIncome bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownCategory)
	}

	flow := model.FlowExpense
	if isIncome {
		flow = model.FlowIncome
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[name]; ok {
		return nil
	}
	return s.registerPrimaryLocked(ctx, name, flow)
}

func (s *Service) registerPrimaryLocked(ctx context.Context, name string, flow model.FlowDirection) error {
	cat := model.Category{
		Name:   name,
		Emoji:  model.DefaultEmoji,
		Flow:   flow,
		Custom: !IsDefault(name),
	}
	for _, def := range Defaults() {
		if def.Name == name {
			cat = def
		}
	}

	if err := s.store.SaveCategories(ctx, []model.Category{cat}); err != nil {
		return fmt.Errorf("failed to register category %q: %w", name, err)
	}

	s.categories = append(s.categories, cat)
	s.index[name] = len(s.categories) - 1
	s.logger.Info("Registered category", "name", name, "flow", string(flow))
	return nil
}

// RegisterSub adds a subcategory under an existing parent. Existing names are a no-op.
func (s *Service) RegisterSub(ctx context.Context, parent, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == model.NoneSubCategory {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[parent]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, parent)
	}
	if s.categories[i].HasSub(name) {
		return nil
	}

	sub := model.Subcategory{Name: name, Emoji: model.DefaultEmoji, Custom: !IsDefaultSub(parent, name)}
	if err := s.store.SaveSubcategory(ctx, parent, sub); err != nil {
		return fmt.Errorf("failed to register subcategory %s/%s: %w", parent, name, err)
	}

	s.categories[i].Subcategories = append(s.categories[i].Subcategories, sub)
	s.logger.Info("Registered subcategory", "parent", parent, "name", name)
	return nil
}

// IsUserDefined reports whether name is a category the user created.
func (s *Service) IsUserDefined(name string) bool {
	return s.Exists(name) && !IsDefault(name)
}

// IsUserDefinedSub reports whether parent/name is a subcategory the user created.
func (s *Service) IsUserDefinedSub(parent, name string) bool {
	return s.ExistsSub(parent, name) && !IsDefaultSub(parent, name)
}

// DeletePrimary removes a user-defined category and every record filed under it.
func (s *Service) DeletePrimary(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if IsDefault(name) {
		return 0, fmt.Errorf("%w: %q", ErrProtected, name)
	}

	removed, err := s.store.DeleteCategory(ctx, name)
	if err != nil {
		return 0, err
	}

	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	s.reindex()
	return removed, nil
}

// DeleteSub removes a user-defined subcategory and every record filed under it.
func (s *Service) DeleteSub(ctx context.Context, parent, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[parent]
	if !ok || !s.categories[i].HasSub(name) {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnknownCategory, parent, name)
	}
	if IsDefaultSub(parent, name) {
		return 0, fmt.Errorf("%w: %s/%s", ErrProtected, parent, name)
	}

	removed, err := s.store.DeleteSubcategory(ctx, parent, name)
	if err != nil {
		return 0, err
	}

	subs := s.categories[i].Subcategories[:0]
	for _, sub := range s.categories[i].Subcategories {
		if sub.Name != name {
			subs = append(subs, sub)
		}
	}
	s.categories[i].Subcategories = subs
	return removed, nil
}

// Snapshot copies the tree split by direction.
func (s *Service) Snapshot() model.TaxonomySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap model.TaxonomySnapshot
	for _, cat := range s.categories {
		if cat.Flow.IsIncome() {
			snap.Income.Add(cat.Name, cat.SubNames())
		} else {
			snap.Expense.Add(cat.Name, cat.SubNames())
		}
	}
	return snap
}

// Hints returns the classifier personalization hints.
func (s *Service) Hints(ctx context.Context) ([]string, error) {
	return s.store.ListHints(ctx)
}

// AddHint stores a hint, reporting false when it already existed.
func (s *Service) AddHint(ctx context.Context, hint string) (bool, error) {
	return s.store.AddHint(ctx, hint)
}

// RemoveHint deletes a hint.
func (s *Service) RemoveHint(ctx context.Context, hint string) error {
	return s.store.RemoveHint(ctx, hint)
}
