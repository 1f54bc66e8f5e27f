package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

// MockLibrary is a testify mock of ports.Library.
type MockLibrary struct {
	mock.Mock
}

var _ ports.Library = (*MockLibrary)(nil)

func NewMockLibrary(t mock.TestingT) *MockLibrary {
	m := &MockLibrary{}
	m.Test(t)

	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}

	return m
}

func (m *MockLibrary) ListCategories(ctx context.Context, cred domain.Credential) ([]domain.Category, error) {
	args := m.Called(ctx, cred)
	out, _ := args.Get(0).([]domain.Category)

	return out, args.Error(1)
}

func (m *MockLibrary) ListTags(ctx context.Context, cred domain.Credential) ([]domain.Tag, error) {
	args := m.Called(ctx, cred)
	out, _ := args.Get(0).([]domain.Tag)

	return out, args.Error(1)
}

func (m *MockLibrary) ListPrompts(
	ctx context.Context,
	cred domain.Credential,
	filter domain.PromptFilter,
) ([]domain.PromptSummary, error) {
	args := m.Called(ctx, cred, filter)
	out, _ := args.Get(0).([]domain.PromptSummary)

	return out, args.Error(1)
}

func (m *MockLibrary) GetPrompt(ctx context.Context, cred domain.Credential, id string) (*domain.Prompt, error) {
	args := m.Called(ctx, cred, id)
	out, _ := args.Get(0).(*domain.Prompt)

	return out, args.Error(1)
}

func (m *MockLibrary) CreateCategory(ctx context.Context, cred domain.Credential, name string) (*domain.Category, error) {
	args := m.Called(ctx, cred, name)
	out, _ := args.Get(0).(*domain.Category)

	return out, args.Error(1)
}

func (m *MockLibrary) CreateSubcategory(
	ctx context.Context,
	cred domain.Credential,
	categoryID, name string,
) (*domain.Subcategory, error) {
	args := m.Called(ctx, cred, categoryID, name)
	out, _ := args.Get(0).(*domain.Subcategory)

	return out, args.Error(1)
}

func (m *MockLibrary) CreateTag(ctx context.Context, cred domain.Credential, name string) (*domain.Tag, error) {
	args := m.Called(ctx, cred, name)
	out, _ := args.Get(0).(*domain.Tag)

	return out, args.Error(1)
}

func (m *MockLibrary) CreatePrompt(
	ctx context.Context,
	cred domain.Credential,
	input *domain.StructuredPrompt,
) (*domain.Prompt, error) {
	args := m.Called(ctx, cred, input)
	out, _ := args.Get(0).(*domain.Prompt)

	return out, args.Error(1)
}
