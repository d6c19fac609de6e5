package mocks

import (
	"context"
	"sync"

	"github.com/edurotich/smartplanner/domain"
)

// MockTokenLedger implements domain.TokenLedger for testing. With no
// Func overrides it behaves as an in-memory ledger with the same
// conditional-decrement guarantee as the real one, which makes it
// usable in concurrency tests.
type MockTokenLedger struct {
	CreateAccountFunc func(ctx context.Context, userID uint, openingBalance int64) error
	BalanceFunc       func(ctx context.Context, userID uint) (int64, error)
	CreditFunc        func(ctx context.Context, userID uint, amount int64) error
	DebitFunc         func(ctx context.Context, userID uint, amount int64) (bool, error)
	RefundFunc        func(ctx context.Context, userID uint, amount int64) error
	DeleteAccountFunc func(ctx context.Context, userID uint) error

	mu       sync.Mutex
	balances map[uint]int64
}

// NewMockTokenLedger creates a new MockTokenLedger with default in-memory behavior
func NewMockTokenLedger() *MockTokenLedger {
	return &MockTokenLedger{balances: make(map[uint]int64)}
}

// SetBalance seeds the in-memory balance for a user
func (m *MockTokenLedger) SetBalance(userID uint, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = balance
}

func (m *MockTokenLedger) CreateAccount(ctx context.Context, userID uint, openingBalance int64) error {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, userID, openingBalance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; ok {
		return domain.ErrAccountExists
	}
	m.balances[userID] = openingBalance
	return nil
}

func (m *MockTokenLedger) Balance(ctx context.Context, userID uint) (int64, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	return bal, nil
}

func (m *MockTokenLedger) Credit(ctx context.Context, userID uint, amount int64) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return domain.ErrUserNotFound
	}
	m.balances[userID] += amount
	return nil
}

func (m *MockTokenLedger) Debit(ctx context.Context, userID uint, amount int64) (bool, error) {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, userID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if bal < amount {
		return false, nil
	}
	m.balances[userID] = bal - amount
	return true, nil
}

func (m *MockTokenLedger) Refund(ctx context.Context, userID uint, amount int64) error {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, userID, amount)
	}
	return m.Credit(ctx, userID, amount)
}

func (m *MockTokenLedger) DeleteAccount(ctx context.Context, userID uint) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.balances, userID)
	return nil
}

// Compile-time interface compliance verification
var _ domain.TokenLedger = (*MockTokenLedger)(nil)
