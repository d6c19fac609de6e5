package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edurotich/smartplanner/domain"
)

// SessionCookie is the cookie the route layer transports session tokens in
const SessionCookie = "session-token"

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc   domain.AuthService
	ledger    domain.TokenLedger
	loginCost int64
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, ledger domain.TokenLedger, loginCost int64) *AuthHandlers {
	return &AuthHandlers{
		authSvc:   authSvc,
		ledger:    ledger,
		loginCost: loginCost,
	}
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// VerifyOTPRequest represents an OTP verification request
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// Signup handles new user registration and signup OTP resend
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.Signup(c.Request.Context(), req.Phone, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number. Must be a valid Kenyan number."})
		case errors.Is(err, domain.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "User with this phone number already exists and is verified. Please login instead."})
		case errors.Is(err, domain.ErrOTPResendLimit):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting another code."})
		case errors.Is(err, domain.ErrOTPDispatchFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification SMS. Please try again."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign up"})
		}
		return
	}

	message := "OTP sent to your phone!"
	if result.Resent {
		message = "New OTP sent to your phone!"
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":        message,
			"user_id":        result.UserID,
			"phone":          result.Phone,
			"otp_expires_at": result.OTPExpiresAt,
			"next_step":      "verify_otp",
		},
	})
}

// VerifySignupOTP completes signup and issues the first session
func (h *AuthHandlers) VerifySignupOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.VerifySignupOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeVerifyError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "Phone number verified successfully",
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"balance":    result.Balance,
			"user": gin.H{
				"id":       result.User.ID,
				"phone":    result.User.Phone,
				"name":     result.User.Name,
				"verified": result.User.Verified,
			},
		},
	})
}

// Login dispatches a login OTP challenge (costs one token)
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number. Must be a valid Kenyan number."})
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "No account found with this phone number. Please sign up first."})
		case errors.Is(err, domain.ErrUserNotVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account not verified. Please complete signup verification first."})
		case errors.Is(err, domain.ErrInsufficientTokens):
			h.writeInsufficientTokens(c, err)
		case errors.Is(err, domain.ErrOTPResendLimit):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting another code."})
		case errors.Is(err, domain.ErrOTPDispatchFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send login SMS. No tokens were spent."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":          "Login OTP sent to your phone! (1 token deducted)",
			"user_id":          result.UserID,
			"phone":            result.Phone,
			"otp_expires_at":   result.OTPExpiresAt,
			"tokens_remaining": result.TokensRemaining,
			"next_step":        "verify_login_otp",
		},
	})
}

// VerifyLoginOTP completes a login challenge and issues a session
func (h *AuthHandlers) VerifyLoginOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.VerifyLoginOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeVerifyError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "Login successful",
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"balance":    result.Balance,
			"user": gin.H{
				"id":    result.User.ID,
				"phone": result.User.Phone,
				"name":  result.User.Name,
			},
		},
	})
}

// Refresh extends the current session expiry in place
func (h *AuthHandlers) Refresh(c *gin.Context) {
	token := SessionToken(c)
	refreshed, err := h.authSvc.RefreshSession(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh session"})
		return
	}
	if !refreshed {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Session refreshed"}})
}

// Logout deletes the current session; repeating it is harmless
func (h *AuthHandlers) Logout(c *gin.Context) {
	token := SessionToken(c)
	if err := h.authSvc.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// Me returns the authenticated user's profile and balance
func (h *AuthHandlers) Me(c *gin.Context) {
	userID := CurrentUserID(c)
	user, err := h.authSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user profile"})
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get token balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":            user.ID,
			"phone":         user.Phone,
			"name":          user.Name,
			"verified":      user.Verified,
			"balance":       balance,
			"last_login_at": user.LastLoginAt,
			"created_at":    user.CreatedAt,
		},
	})
}

// Balance returns the authenticated user's token balance
func (h *AuthHandlers) Balance(c *gin.Context) {
	userID := CurrentUserID(c)
	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get token balance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance": balance}})
}

func (h *AuthHandlers) writeVerifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number. Must be a valid Kenyan number."})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found or invalid phone number"})
	case errors.Is(err, domain.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already verified. Please login instead."})
	case errors.Is(err, domain.ErrUserNotVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account not verified. Please complete signup verification first."})
	case errors.Is(err, domain.ErrOTPInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP code. Please re-check the code."})
	case errors.Is(err, domain.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired. Please request a new code."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP verification failed"})
	}
}

// writeInsufficientTokens reports the price and current balance so the
// client can route the user to a top-up flow.
func (h *AuthHandlers) writeInsufficientTokens(c *gin.Context, err error) {
	body := gin.H{
		"error":    "Insufficient tokens for login. Please purchase tokens to continue.",
		"required": h.loginCost,
	}
	var ite *domain.InsufficientTokensError
	if errors.As(err, &ite) {
		body["required"] = ite.Required
		body["balance"] = ite.Balance
	}
	c.JSON(http.StatusPaymentRequired, body)
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(SessionCookie, token, maxAge, "/", "", false, true)
}
