package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotVerified   = errors.New("phone number not verified")
	ErrAlreadyVerified   = errors.New("user already verified")
)

// OTP errors
var (
	ErrOTPInvalid        = errors.New("invalid otp code")
	ErrOTPExpired        = errors.New("otp has expired")
	ErrOTPResendLimit    = errors.New("otp resend limit exceeded")
	ErrOTPDispatchFailed = errors.New("otp dispatch failed")
)

// Ledger errors
var (
	ErrInsufficientTokens = errors.New("insufficient token balance")
	ErrAccountExists      = errors.New("token account already exists")
)

// InsufficientTokensError carries the price of the rejected operation and
// the balance at the time of rejection. It unwraps to ErrInsufficientTokens.
type InsufficientTokensError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientTokensError) Error() string {
	return ErrInsufficientTokens.Error()
}

func (e *InsufficientTokensError) Unwrap() error {
	return ErrInsufficientTokens
}

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// Payment errors
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrGatewayRejected = errors.New("payment gateway rejected request")
)
