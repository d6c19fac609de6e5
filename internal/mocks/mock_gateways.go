package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/edurotich/smartplanner/domain"
)

// MockSMSService implements domain.SMSService for testing
type MockSMSService struct {
	SendSMSFunc func(to, message string) error

	mu   sync.Mutex
	sent []SentSMS
}

// SentSMS records one dispatched message
type SentSMS struct {
	To      string
	Message string
}

// NewMockSMSService creates a new MockSMSService with default behaviors
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (m *MockSMSService) SendSMS(to, message string) error {
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(to, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentSMS{To: to, Message: message})
	return nil
}

// Sent returns a copy of the dispatched messages
func (m *MockSMSService) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ domain.SMSService = (*MockSMSService)(nil)

// MockPaymentGateway implements domain.PaymentGateway for testing
type MockPaymentGateway struct {
	InitiateSTKPushFunc func(ctx context.Context, phone string, amountKES int64, accountRef string) (*domain.STKPushResponse, error)
}

// NewMockPaymentGateway creates a new MockPaymentGateway with default behaviors
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) InitiateSTKPush(ctx context.Context, phone string, amountKES int64, accountRef string) (*domain.STKPushResponse, error) {
	if m.InitiateSTKPushFunc != nil {
		return m.InitiateSTKPushFunc(ctx, phone, amountKES, accountRef)
	}
	return &domain.STKPushResponse{
		MerchantRequestID:   "mock-merchant-id",
		CheckoutRequestID:   "ws_CO_mock",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

var _ domain.PaymentGateway = (*MockPaymentGateway)(nil)

// MockOTPThrottle implements domain.OTPThrottle for testing
type MockOTPThrottle struct {
	CanSendFunc  func(ctx context.Context, phone string) (bool, time.Duration, error)
	MarkSentFunc func(ctx context.Context, phone string) error
}

// NewMockOTPThrottle creates a new MockOTPThrottle that always allows sending
func NewMockOTPThrottle() *MockOTPThrottle {
	return &MockOTPThrottle{}
}

func (m *MockOTPThrottle) CanSend(ctx context.Context, phone string) (bool, time.Duration, error) {
	if m.CanSendFunc != nil {
		return m.CanSendFunc(ctx, phone)
	}
	return true, 0, nil
}

func (m *MockOTPThrottle) MarkSent(ctx context.Context, phone string) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, phone)
	}
	return nil
}

var _ domain.OTPThrottle = (*MockOTPThrottle)(nil)
