// Package ports defines the contracts adapters implement so the application
// layer depends on abstractions rather than concrete infrastructure.
//
// Every port method takes a context first and returns domain types and
// domain errors (ErrNotFound, ErrConflict, ErrUnavailable, ...).
package ports

import (
	"context"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// Library is the persistence collaborator that owns categories, subcategories,
// tags and prompts.
//
// Every call carries the caller's credential explicitly. Implementations must
// not fall back to ambient session state.
type Library interface {
	LibraryReader
	LibraryWriter
}

// LibraryReader is the read side of Library, used by export.
type LibraryReader interface {
	// ListCategories returns all categories with their subcategories nested.
	ListCategories(ctx context.Context, cred domain.Credential) ([]domain.Category, error)

	// ListTags returns all tags.
	ListTags(ctx context.Context, cred domain.Credential) ([]domain.Tag, error)

	// ListPrompts returns prompt summaries matching filter.
	ListPrompts(ctx context.Context, cred domain.Credential, filter domain.PromptFilter) ([]domain.PromptSummary, error)

	// GetPrompt returns one prompt with its references resolved.
	// Returns domain.ErrNotFound if the prompt does not exist.
	GetPrompt(ctx context.Context, cred domain.Credential, id string) (*domain.Prompt, error)
}

// LibraryWriter is the write side of Library, used by import.
type LibraryWriter interface {
	// CreateCategory creates a category.
	// Returns domain.ErrConflict if the name is already taken.
	CreateCategory(ctx context.Context, cred domain.Credential, name string) (*domain.Category, error)

	// CreateSubcategory creates a subcategory under categoryID.
	// Returns domain.ErrNotFound for an unknown category and domain.ErrConflict
	// if the name is already taken within it.
	CreateSubcategory(ctx context.Context, cred domain.Credential, categoryID, name string) (*domain.Subcategory, error)

	// CreateTag creates a tag.
	// Returns domain.ErrConflict if the name is already taken.
	CreateTag(ctx context.Context, cred domain.Credential, name string) (*domain.Tag, error)

	// CreatePrompt persists a new prompt. Tags named in input that do not exist
	// yet are created by the collaborator.
	CreatePrompt(ctx context.Context, cred domain.Credential, input *domain.StructuredPrompt) (*domain.Prompt, error)
}
