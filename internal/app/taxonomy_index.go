package app

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

// taxonomyIndex memoizes name → ID lookups for the duration of one import.
// It is loaded once from the collaborator and grows as entries are created.
// Matching is exact and case-sensitive.
type taxonomyIndex struct {
	lib  ports.LibraryWriter
	cred domain.Credential

	categories    map[string]string
	subcategories map[string]map[string]string // category ID → name → ID
	tags          map[string]string

	created int
}

func loadTaxonomyIndex(ctx context.Context, lib ports.Library, cred domain.Credential) (*taxonomyIndex, error) {
	cats, err := lib.ListCategories(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	tags, err := lib.ListTags(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	idx := &taxonomyIndex{
		lib:           lib,
		cred:          cred,
		categories:    make(map[string]string, len(cats)),
		subcategories: make(map[string]map[string]string, len(cats)),
		tags:          make(map[string]string, len(tags)),
	}

	for _, c := range cats {
		idx.categories[c.Name] = c.ID

		subs := make(map[string]string, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs[s.Name] = s.ID
		}

		idx.subcategories[c.ID] = subs
	}

	for _, t := range tags {
		idx.tags[t.Name] = t.ID
	}

	return idx, nil
}

// category resolves or creates a category by name.
func (x *taxonomyIndex) category(ctx context.Context, name string) (string, error) {
	if id, ok := x.categories[name]; ok {
		return id, nil
	}

	c, err := x.lib.CreateCategory(ctx, x.cred, name)
	if err != nil {
		return "", fmt.Errorf("creating category %q: %w", name, err)
	}

	x.categories[name] = c.ID
	x.subcategories[c.ID] = make(map[string]string)
	x.created++

	return c.ID, nil
}

// subcategory resolves or creates a subcategory by name within categoryID.
func (x *taxonomyIndex) subcategory(ctx context.Context, categoryID, name string) (string, error) {
	subs := x.subcategories[categoryID]
	if subs == nil {
		subs = make(map[string]string)
		x.subcategories[categoryID] = subs
	}

	if id, ok := subs[name]; ok {
		return id, nil
	}

	s, err := x.lib.CreateSubcategory(ctx, x.cred, categoryID, name)
	if err != nil {
		return "", fmt.Errorf("creating subcategory %q: %w", name, err)
	}

	subs[name] = s.ID
	x.created++

	return s.ID, nil
}

// tag resolves or creates a tag by name.
func (x *taxonomyIndex) tag(ctx context.Context, name string) (string, error) {
	if id, ok := x.tags[name]; ok {
		return id, nil
	}

	t, err := x.lib.CreateTag(ctx, x.cred, name)
	if err != nil {
		return "", fmt.Errorf("creating tag %q: %w", name, err)
	}

	x.tags[name] = t.ID
	x.created++

	return t.ID, nil
}
