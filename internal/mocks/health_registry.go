package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/promptlib/internal/ports"
)

// MockHealthRegistry is a testify mock of ports.HealthRegistry.
type MockHealthRegistry struct {
	mock.Mock
}

var _ ports.HealthRegistry = (*MockHealthRegistry)(nil)

func NewMockHealthRegistry(t mock.TestingT) *MockHealthRegistry {
	m := &MockHealthRegistry{}
	m.Test(t)

	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}

	return m
}

func (m *MockHealthRegistry) Register(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

func (m *MockHealthRegistry) CheckAll(ctx context.Context) *ports.HealthResult {
	res, _ := m.Called(ctx).Get(0).(*ports.HealthResult)
	return res
}
