package services

import (
	"context"
	"testing"
	"time"

	"github.com/edurotich/smartplanner/domain"
	"github.com/edurotich/smartplanner/internal/mocks"
)

// testAuthConfig mirrors the production defaults
func testAuthConfig() AuthConfig {
	return AuthConfig{
		OTPTTL:      5 * time.Minute,
		SessionTTL:  7 * 24 * time.Hour,
		SignupGrant: 5,
		LoginCost:   1,
	}
}

// authServiceFixture bundles the mocks so tests can inspect them after
// the call under test.
type authServiceFixture struct {
	userRepo    *mocks.MockUserRepository
	ledger      *mocks.MockTokenLedger
	sessionRepo *mocks.MockSessionRepository
	smsSvc      *mocks.MockSMSService
	throttle    *mocks.MockOTPThrottle
	svc         domain.AuthService
}

func newAuthServiceFixture(t *testing.T) *authServiceFixture {
	t.Helper()
	f := &authServiceFixture{
		userRepo:    mocks.NewMockUserRepository(),
		ledger:      mocks.NewMockTokenLedger(),
		sessionRepo: mocks.NewMockSessionRepository(),
		smsSvc:      mocks.NewMockSMSService(),
		throttle:    mocks.NewMockOTPThrottle(),
	}
	f.svc = NewAuthService(f.userRepo, f.ledger, f.sessionRepo, f.smsSvc, f.throttle, nil, testAuthConfig())
	return f
}

func createTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// createVerifiedUser returns a verified user with no pending OTP
func createVerifiedUser(t *testing.T) *domain.User {
	t.Helper()
	return &domain.User{
		ID:       1,
		Phone:    "254712345678",
		Name:     "Test User",
		Verified: true,
	}
}

// createUnverifiedUser returns a user mid-signup with a pending OTP
func createUnverifiedUser(t *testing.T, code string, expiresAt time.Time) *domain.User {
	t.Helper()
	return &domain.User{
		ID:           1,
		Phone:        "254712345678",
		Name:         "Test User",
		Verified:     false,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	}
}

// withPendingOTP attaches an outstanding login challenge to a user
func withPendingOTP(user *domain.User, code string, expiresAt time.Time) *domain.User {
	user.OTPCode = &code
	user.OTPExpiresAt = &expiresAt
	return user
}
