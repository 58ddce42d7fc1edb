package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"njcrashes/internal/domain"
	"njcrashes/internal/service"
)

// MockDecodeService is a mock implementation of service.DecodeService.
type MockDecodeService struct {
	mock.Mock
}

func (m *MockDecodeService) Decode(ctx context.Context, input service.DecodeInput) (*service.DecodeResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DecodeResult), args.Error(1)
}

func (m *MockDecodeService) Schema(kind domain.RecordKind, year int) (*domain.Schema, error) {
	args := m.Called(kind, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schema), args.Error(1)
}
