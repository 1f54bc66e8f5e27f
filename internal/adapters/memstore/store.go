// Package memstore provides an in-memory implementation of the library
// collaborator. It backs the CLI's --memory mode and the round-trip tests.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

// Operation names accepted by Store.FailOn.
const (
	OpListCategories    = "ListCategories"
	OpCreateCategory    = "CreateCategory"
	OpCreateSubcategory = "CreateSubcategory"
	OpListTags          = "ListTags"
	OpCreateTag         = "CreateTag"
	OpListPrompts       = "ListPrompts"
	OpGetPrompt         = "GetPrompt"
	OpCreatePrompt      = "CreatePrompt"
)

var _ ports.Library = (*Store)(nil)

type promptRow struct {
	id        string
	body      domain.StructuredPrompt
	createdAt time.Time
	updatedAt time.Time
}

// Store is a thread-safe in-memory library. Name uniqueness matches the
// persistence rules: categories and tags library-wide, subcategories per
// category. The credential is accepted but not checked.
type Store struct {
	mu sync.RWMutex

	categories    []domain.Category
	subcategories []domain.Subcategory
	tags          []domain.Tag
	prompts       []promptRow

	now func() time.Time

	// FailOn injects an error for the named operation. Keys are the Op* constants.
	FailOn map[string]error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for prompt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		FailOn: make(map[string]error),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memstore" }

// Check implements ports.HealthChecker. An in-memory store is always ready.
func (s *Store) Check(context.Context) error { return nil }

func (s *Store) injected(op string) error {
	return s.FailOn[op]
}

// ListCategories implements ports.Library.
func (s *Store) ListCategories(ctx context.Context, _ domain.Credential) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpListCategories); err != nil {
		return nil, err
	}

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, s.categoryWithChildren(c.ID))
	}

	return out, nil
}

// CreateCategory implements ports.Library.
func (s *Store) CreateCategory(ctx context.Context, _ domain.Credential, name string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpCreateCategory); err != nil {
		return nil, err
	}

	if slices.ContainsFunc(s.categories, func(c domain.Category) bool { return c.Name == name }) {
		return nil, domain.NewConflictError("category", "name already exists")
	}

	c := domain.Category{ID: uuid.NewString(), Name: name}
	s.categories = append(s.categories, c)

	return &c, nil
}

// CreateSubcategory implements ports.Library.
func (s *Store) CreateSubcategory(ctx context.Context, _ domain.Credential, categoryID, name string) (*domain.Subcategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpCreateSubcategory); err != nil {
		return nil, err
	}

	if s.findCategory(categoryID) == nil {
		return nil, domain.NewNotFoundError("category", categoryID)
	}

	if slices.ContainsFunc(s.subcategories, func(sc domain.Subcategory) bool {
		return sc.CategoryID == categoryID && sc.Name == name
	}) {
		return nil, domain.NewConflictError("subcategory", "name already exists in category")
	}

	sc := domain.Subcategory{ID: uuid.NewString(), Name: name, CategoryID: categoryID}
	s.subcategories = append(s.subcategories, sc)

	return &sc, nil
}

// ListTags implements ports.Library.
func (s *Store) ListTags(ctx context.Context, _ domain.Credential) ([]domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpListTags); err != nil {
		return nil, err
	}

	return slices.Clone(s.tags), nil
}

// CreateTag implements ports.Library.
func (s *Store) CreateTag(ctx context.Context, _ domain.Credential, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpCreateTag); err != nil {
		return nil, err
	}

	return s.createTagLocked(name)
}

func (s *Store) createTagLocked(name string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}

	if slices.ContainsFunc(s.tags, func(t domain.Tag) bool { return t.Name == name }) {
		return nil, domain.NewConflictError("tag", "name already exists")
	}

	t := domain.Tag{ID: uuid.NewString(), Name: name}
	s.tags = append(s.tags, t)

	return &t, nil
}

// ListPrompts implements ports.Library.
func (s *Store) ListPrompts(ctx context.Context, _ domain.Credential, filter domain.PromptFilter) ([]domain.PromptSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpListPrompts); err != nil {
		return nil, err
	}

	out := make([]domain.PromptSummary, 0, len(s.prompts))
	for i := range s.prompts {
		p := s.resolve(&s.prompts[i])
		if matches(&p, &filter) {
			out = append(out, summarize(&p))
		}
	}

	sortSummaries(out, &filter)

	return out, nil
}

// GetPrompt implements ports.Library.
func (s *Store) GetPrompt(ctx context.Context, _ domain.Credential, id string) (*domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(OpGetPrompt); err != nil {
		return nil, err
	}

	i := slices.IndexFunc(s.prompts, func(r promptRow) bool { return r.id == id })
	if i < 0 {
		return nil, domain.NewNotFoundError("prompt", id)
	}

	p := s.resolve(&s.prompts[i])

	return &p, nil
}

// CreatePrompt implements ports.Library. Missing tags are created.
func (s *Store) CreatePrompt(ctx context.Context, _ domain.Credential, input *domain.StructuredPrompt) (*domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpCreatePrompt); err != nil {
		return nil, err
	}

	if input.CategoryID != "" && s.findCategory(input.CategoryID) == nil {
		return nil, domain.NewNotFoundError("category", input.CategoryID)
	}

	if input.SubcategoryID != "" {
		sc := s.findSubcategory(input.SubcategoryID)
		if sc == nil {
			return nil, domain.NewNotFoundError("subcategory", input.SubcategoryID)
		}

		if sc.CategoryID != input.CategoryID {
			return nil, domain.NewInconsistencyError("prompt", "subcategory does not belong to category")
		}
	}

	body := input.Clone()
	body.Tags = domain.NormalizeTags(body.Tags)
	body.Langue = body.Language()

	for _, name := range body.Tags {
		if !slices.ContainsFunc(s.tags, func(t domain.Tag) bool { return t.Name == name }) {
			if _, err := s.createTagLocked(name); err != nil {
				return nil, err
			}
		}
	}

	now := s.now()
	row := promptRow{id: uuid.NewString(), body: body, createdAt: now, updatedAt: now}
	s.prompts = append(s.prompts, row)

	p := s.resolve(&row)

	return &p, nil
}

// Counts returns the number of categories, subcategories, tags and prompts.
func (s *Store) Counts() (categories, subcategories, tags, prompts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.categories), len(s.subcategories), len(s.tags), len(s.prompts)
}

func (s *Store) findCategory(id string) *domain.Category {
	i := slices.IndexFunc(s.categories, func(c domain.Category) bool { return c.ID == id })
	if i < 0 {
		return nil
	}

	return &s.categories[i]
}

func (s *Store) findSubcategory(id string) *domain.Subcategory {
	i := slices.IndexFunc(s.subcategories, func(sc domain.Subcategory) bool { return sc.ID == id })
	if i < 0 {
		return nil
	}

	return &s.subcategories[i]
}

func (s *Store) categoryWithChildren(id string) domain.Category {
	c := *s.findCategory(id)
	c.Subcategories = nil

	for _, sc := range s.subcategories {
		if sc.CategoryID == id {
			c.Subcategories = append(c.Subcategories, sc)
		}
	}

	return c
}

// resolve builds a detached domain.Prompt from a stored row.
func (s *Store) resolve(row *promptRow) domain.Prompt {
	p := domain.Prompt{
		ID:               row.id,
		StructuredPrompt: row.body.Clone(),
		CreatedAt:        row.createdAt,
		UpdatedAt:        row.updatedAt,
	}

	if row.body.CategoryID != "" {
		if c := s.findCategory(row.body.CategoryID); c != nil {
			cc := domain.Category{ID: c.ID, Name: c.Name}
			p.Category = &cc
		}
	}

	if row.body.SubcategoryID != "" {
		if sc := s.findSubcategory(row.body.SubcategoryID); sc != nil {
			scc := *sc
			p.Subcategory = &scc
		}
	}

	return p
}

func summarize(p *domain.Prompt) domain.PromptSummary {
	return domain.PromptSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ModeleCible: p.ModeleCible,
		Langue:      p.Langue,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Tags:        slices.Clone(p.Tags),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// matches applies the listing filter. Search is a case-insensitive substring
// match over title, description and the framework fields.
func matches(p *domain.Prompt, f *domain.PromptFilter) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}

	if f.SubcategoryID != "" && p.SubcategoryID != f.SubcategoryID {
		return false
	}

	if f.Tag != "" && !slices.Contains(p.Tags, f.Tag) {
		return false
	}

	if f.ModeleCible != "" && p.ModeleCible != f.ModeleCible {
		return false
	}

	if f.Langue != "" && p.Langue != f.Langue {
		return false
	}

	if f.Search == "" {
		return true
	}

	needle := strings.ToLower(f.Search)
	haystack := []string{p.Title, p.Description}

	for _, field := range domain.FrameworkFields() {
		haystack = append(haystack, p.Field(field.Key))
	}

	return slices.ContainsFunc(haystack, func(h string) bool {
		return strings.Contains(strings.ToLower(h), needle)
	})
}

func sortSummaries(rows []domain.PromptSummary, f *domain.PromptFilter) {
	key, desc := f.SortKey()

	slices.SortStableFunc(rows, func(a, b domain.PromptSummary) int {
		var c int

		switch key {
		case domain.SortTitle:
			c = cmp.Compare(a.Title, b.Title)
		case domain.SortCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case domain.SortCategory:
			c = cmp.Compare(categoryName(a.Category), categoryName(b.Category))
		default:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		}

		if desc {
			return -c
		}

		return c
	})
}

func categoryName(c *domain.Category) string {
	if c == nil {
		return ""
	}

	return c.Name
}
