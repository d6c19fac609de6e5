package mocks

import (
	"context"

	"github.com/edurotich/smartplanner/domain"
)

// MockPaymentRepository implements domain.PaymentRepository for testing
type MockPaymentRepository struct {
	CreatePendingFunc     func(ctx context.Context, payment *domain.Payment) error
	CompleteAndCreditFunc func(ctx context.Context, userID uint, n *domain.PaymentNotification, tokens int64) (bool, error)
	MarkFailedFunc        func(ctx context.Context, checkoutRequestID, reason string) error
	FindByCheckoutIDFunc  func(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
}

// NewMockPaymentRepository creates a new MockPaymentRepository with default behaviors
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{}
}

func (m *MockPaymentRepository) CreatePending(ctx context.Context, payment *domain.Payment) error {
	if m.CreatePendingFunc != nil {
		return m.CreatePendingFunc(ctx, payment)
	}
	payment.ID = "mock-payment-id"
	return nil
}

func (m *MockPaymentRepository) CompleteAndCredit(ctx context.Context, userID uint, n *domain.PaymentNotification, tokens int64) (bool, error) {
	if m.CompleteAndCreditFunc != nil {
		return m.CompleteAndCreditFunc(ctx, userID, n, tokens)
	}
	return true, nil
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, checkoutRequestID, reason string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, checkoutRequestID, reason)
	}
	return nil
}

func (m *MockPaymentRepository) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	if m.FindByCheckoutIDFunc != nil {
		return m.FindByCheckoutIDFunc(ctx, checkoutRequestID)
	}
	return nil, domain.ErrPaymentNotFound
}

// Compile-time interface compliance verification
var _ domain.PaymentRepository = (*MockPaymentRepository)(nil)
