// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

// Package mocks holds testify mocks of the auth package interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/membergate/membergate/internal/auth"
)

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByField provides a mock function.
func (m *MockUserRepository) FindByField(ctx context.Context, field auth.Field, value string) ([]*auth.User, error) {
	args := m.Called(ctx, field, value)
	return usersArg(args, 0), args.Error(1)
}

// FindByEitherOf provides a mock function.
func (m *MockUserRepository) FindByEitherOf(ctx context.Context, field1 auth.Field, value1 string, field2 auth.Field, value2 string) ([]*auth.User, error) {
	args := m.Called(ctx, field1, value1, field2, value2)
	return usersArg(args, 0), args.Error(1)
}

// Insert provides a mock function.
func (m *MockUserRepository) Insert(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// UpdateField provides a mock function.
func (m *MockUserRepository) UpdateField(ctx context.Context, matchField auth.Field, matchValue string, field auth.Field, value string) error {
	args := m.Called(ctx, matchField, matchValue, field, value)
	return args.Error(0)
}

// List provides a mock function.
func (m *MockUserRepository) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	return usersArg(args, 0), args.Error(1)
}

func usersArg(args mock.Arguments, i int) []*auth.User {
	if v := args.Get(i); v != nil {
		return v.([]*auth.User)
	}
	return nil
}

var _ auth.UserRepository = (*MockUserRepository)(nil)
