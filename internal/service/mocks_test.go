package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"library-ledger/internal/ledger"
)

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) LoadAll(ctx context.Context) ([]*ledger.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Account), args.Error(1)
}
func (m *MockAccountRepo) SaveAll(ctx context.Context, accounts []*ledger.Account) error {
	args := m.Called(ctx, accounts)
	return args.Error(0)
}

// MockBridge
type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) IsAvailable(ctx context.Context, isbn string) (bool, error) {
	args := m.Called(ctx, isbn)
	return args.Bool(0), args.Error(1)
}
func (m *MockBridge) MarkBorrowed(ctx context.Context, isbn string) error {
	return m.Called(ctx, isbn).Error(0)
}
func (m *MockBridge) MarkAvailable(ctx context.Context, isbn string) error {
	return m.Called(ctx, isbn).Error(0)
}
