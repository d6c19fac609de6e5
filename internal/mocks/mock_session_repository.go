package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/edurotich/smartplanner/domain"
)

// MockSessionRepository implements domain.SessionRepository for testing.
// The default behavior is an in-memory store that enforces the
// single-session-per-user policy like the Redis implementation.
type MockSessionRepository struct {
	ReplaceFunc          func(ctx context.Context, session *domain.Session) error
	FindByTokenFunc      func(ctx context.Context, token string) (*domain.Session, error)
	RefreshFunc          func(ctx context.Context, token string, expiresAt time.Time) (bool, error)
	DeleteFunc           func(ctx context.Context, token string) error
	DeleteAllForUserFunc func(ctx context.Context, userID uint) error

	mu       sync.Mutex
	byToken  map[string]*domain.Session
	byUserID map[uint]string
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		byToken:  make(map[string]*domain.Session),
		byUserID: make(map[uint]string),
	}
}

func (m *MockSessionRepository) Replace(ctx context.Context, session *domain.Session) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byUserID[session.UserID]; ok {
		delete(m.byToken, old)
	}
	cp := *session
	m.byToken[session.Token] = &cp
	m.byUserID[session.UserID] = session.Token
	return nil
}

func (m *MockSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.FindByTokenFunc != nil {
		return m.FindByTokenFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	if !ok {
		return nil, nil
	}
	if s.Expired(time.Now()) {
		delete(m.byToken, token)
		delete(m.byUserID, s.UserID)
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepository) Refresh(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, token, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	if !ok || s.Expired(time.Now()) {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	return true, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byToken[token]; ok {
		delete(m.byUserID, s.UserID)
		delete(m.byToken, token)
	}
	return nil
}

func (m *MockSessionRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.byUserID[userID]; ok {
		delete(m.byToken, token)
		delete(m.byUserID, userID)
	}
	return nil
}

// Count reports how many live sessions the store holds
func (m *MockSessionRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byToken)
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)
