package domain

import (
	"context"
	"time"
)

// UserRepository defines credential-store data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	SetOTP(ctx context.Context, userID uint, code string, expiresAt time.Time) error
	// ClaimOTP consumes the outstanding code. The clear is conditional
	// on the stored code still matching, so of any number of concurrent
	// claims exactly one succeeds; the rest get ErrOTPInvalid.
	ClaimOTP(ctx context.Context, userID uint, code string) error
	Activate(ctx context.Context, userID uint) error
	RecordLogin(ctx context.Context, userID uint, at time.Time) error
	Delete(ctx context.Context, userID uint) error
}

// TokenLedger defines the prepaid token balance operations.
// Debit is an atomic conditional decrement: it must never apply when the
// pre-debit balance is insufficient and must never drive the balance negative.
type TokenLedger interface {
	CreateAccount(ctx context.Context, userID uint, openingBalance int64) error
	Balance(ctx context.Context, userID uint) (int64, error)
	Credit(ctx context.Context, userID uint, amount int64) error
	Debit(ctx context.Context, userID uint, amount int64) (bool, error)
	Refund(ctx context.Context, userID uint, amount int64) error
	DeleteAccount(ctx context.Context, userID uint) error
}

// SessionRepository defines session data access operations.
// Replace enforces the single-session policy: it removes every existing
// session for the user and installs the new one as one atomic step.
type SessionRepository interface {
	Replace(ctx context.Context, session *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	Refresh(ctx context.Context, token string, expiresAt time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uint) error
}

// PaymentRepository records mobile-money payments and applies their ledger credit
type PaymentRepository interface {
	CreatePending(ctx context.Context, payment *Payment) error
	// CompleteAndCredit records the receipt and credits the ledger in one
	// transaction. It returns false when the receipt (or checkout request)
	// was already credited, in which case no balance change happens.
	CompleteAndCredit(ctx context.Context, userID uint, n *PaymentNotification, tokens int64) (bool, error)
	MarkFailed(ctx context.Context, checkoutRequestID, reason string) error
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*Payment, error)
}

// AuthService defines the OTP/session state machine
type AuthService interface {
	Signup(ctx context.Context, phone, name string) (*SignupResult, error)
	VerifySignupOTP(ctx context.Context, phone, code string) (*AuthResult, error)
	Login(ctx context.Context, phone string) (*LoginResult, error)
	VerifyLoginOTP(ctx context.Context, phone, code string) (*AuthResult, error)
	ValidateSession(ctx context.Context, token string) (*SessionInfo, error)
	RefreshSession(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, userID uint) (*User, error)
}

// PaymentService defines top-up orchestration around the payment gateway
type PaymentService interface {
	InitiateTopUp(ctx context.Context, userID uint, phone string, amountKES int64) (*TopUpResult, error)
	HandleCallback(ctx context.Context, n *PaymentNotification) error
	Status(ctx context.Context, checkoutRequestID string) (*Payment, error)
}

// SMSService defines the outbound SMS gateway
type SMSService interface {
	SendSMS(to, message string) error
}

// PaymentGateway defines the mobile-money STK push gateway
type PaymentGateway interface {
	InitiateSTKPush(ctx context.Context, phone string, amountKES int64, accountRef string) (*STKPushResponse, error)
}

// OTPThrottle limits how often OTP SMS may be dispatched to one phone
type OTPThrottle interface {
	CanSend(ctx context.Context, phone string) (bool, time.Duration, error)
	MarkSent(ctx context.Context, phone string) error
}
