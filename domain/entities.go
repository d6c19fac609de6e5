package domain

import "time"

// User represents a phone-identified account
type User struct {
	ID           uint
	Phone        string
	Name         string
	Verified     bool
	OTPCode      *string
	OTPExpiresAt *time.Time
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingOTP reports whether an OTP challenge is outstanding
func (u *User) HasPendingOTP() bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil
}

// Session represents an opaque bearer session (at most one per user)
type Session struct {
	Token     string
	UserID    uint
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session expiry has passed
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Payment records a mobile-money top-up and its ledger effect
type Payment struct {
	ID                string
	UserID            uint
	Phone             string
	CheckoutRequestID string
	MpesaReceipt      *string
	Amount            float64
	TokensAdded       int64
	Status            PaymentStatus
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PaymentStatus is the lifecycle state of a top-up
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// SignupResult reports the outcome of a signup or signup retry
type SignupResult struct {
	UserID       uint
	Phone        string
	OTPExpiresAt time.Time
	Resent       bool
}

// LoginResult reports a dispatched login challenge
type LoginResult struct {
	UserID          uint
	Phone           string
	OTPExpiresAt    time.Time
	TokensRemaining int64
}

// AuthResult represents a freshly issued session
type AuthResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
	Balance   int64
}

// SessionInfo is a validated session joined to its user
type SessionInfo struct {
	Session *Session
	User    *User
}

// STKPushResponse is the payment gateway's acknowledgement of a top-up request
type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// PaymentNotification is the gateway callback reduced to the fields the ledger needs
type PaymentNotification struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            float64
	MpesaReceipt      string
	Phone             string
}

// TopUpResult reports an initiated STK push
type TopUpResult struct {
	PaymentID         string
	CheckoutRequestID string
	CustomerMessage   string
}
