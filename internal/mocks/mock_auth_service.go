package mocks

import (
	"context"

	"github.com/edurotich/smartplanner/domain"
)

// MockAuthService implements domain.AuthService for handler tests
type MockAuthService struct {
	SignupFunc          func(ctx context.Context, phone, name string) (*domain.SignupResult, error)
	VerifySignupOTPFunc func(ctx context.Context, phone, code string) (*domain.AuthResult, error)
	LoginFunc           func(ctx context.Context, phone string) (*domain.LoginResult, error)
	VerifyLoginOTPFunc  func(ctx context.Context, phone, code string) (*domain.AuthResult, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*domain.SessionInfo, error)
	RefreshSessionFunc  func(ctx context.Context, token string) (bool, error)
	LogoutFunc          func(ctx context.Context, token string) error
	GetProfileFunc      func(ctx context.Context, userID uint) (*domain.User, error)
}

// NewMockAuthService creates a new MockAuthService
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Signup(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, phone, name)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockAuthService) VerifySignupOTP(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
	if m.VerifySignupOTPFunc != nil {
		return m.VerifySignupOTPFunc(ctx, phone, code)
	}
	return nil, domain.ErrOTPInvalid
}

func (m *MockAuthService) Login(ctx context.Context, phone string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, phone)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockAuthService) VerifyLoginOTP(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
	if m.VerifyLoginOTPFunc != nil {
		return m.VerifyLoginOTPFunc(ctx, phone, code)
	}
	return nil, domain.ErrOTPInvalid
}

func (m *MockAuthService) ValidateSession(ctx context.Context, token string) (*domain.SessionInfo, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, nil
}

func (m *MockAuthService) RefreshSession(ctx context.Context, token string) (bool, error) {
	if m.RefreshSessionFunc != nil {
		return m.RefreshSessionFunc(ctx, token)
	}
	return false, nil
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *MockAuthService) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)

// MockPaymentService implements domain.PaymentService for handler tests
type MockPaymentService struct {
	InitiateTopUpFunc  func(ctx context.Context, userID uint, phone string, amountKES int64) (*domain.TopUpResult, error)
	HandleCallbackFunc func(ctx context.Context, n *domain.PaymentNotification) error
	StatusFunc         func(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
}

// NewMockPaymentService creates a new MockPaymentService
func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{}
}

func (m *MockPaymentService) InitiateTopUp(ctx context.Context, userID uint, phone string, amountKES int64) (*domain.TopUpResult, error) {
	if m.InitiateTopUpFunc != nil {
		return m.InitiateTopUpFunc(ctx, userID, phone, amountKES)
	}
	return &domain.TopUpResult{CheckoutRequestID: "ws_CO_mock"}, nil
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, n *domain.PaymentNotification) error {
	if m.HandleCallbackFunc != nil {
		return m.HandleCallbackFunc(ctx, n)
	}
	return nil
}

func (m *MockPaymentService) Status(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, checkoutRequestID)
	}
	return nil, domain.ErrPaymentNotFound
}

// Compile-time interface compliance verification
var _ domain.PaymentService = (*MockPaymentService)(nil)
