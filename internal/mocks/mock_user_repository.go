package mocks

import (
	"context"
	"time"

	"github.com/edurotich/smartplanner/domain"
)

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	CreateFunc      func(ctx context.Context, user *domain.User) error
	FindByPhoneFunc func(ctx context.Context, phone string) (*domain.User, error)
	FindByIDFunc    func(ctx context.Context, id uint) (*domain.User, error)
	SetOTPFunc      func(ctx context.Context, userID uint, code string, expiresAt time.Time) error
	ClaimOTPFunc    func(ctx context.Context, userID uint, code string) error
	ActivateFunc    func(ctx context.Context, userID uint) error
	RecordLoginFunc func(ctx context.Context, userID uint, at time.Time) error
	DeleteFunc      func(ctx context.Context, userID uint) error
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) SetOTP(ctx context.Context, userID uint, code string, expiresAt time.Time) error {
	if m.SetOTPFunc != nil {
		return m.SetOTPFunc(ctx, userID, code, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) ClaimOTP(ctx context.Context, userID uint, code string) error {
	if m.ClaimOTPFunc != nil {
		return m.ClaimOTPFunc(ctx, userID, code)
	}
	return nil
}

func (m *MockUserRepository) Activate(ctx context.Context, userID uint) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, userID uint, at time.Time) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, userID, at)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, userID uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
