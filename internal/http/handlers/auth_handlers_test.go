package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edurotich/smartplanner/domain"
	"github.com/edurotich/smartplanner/internal/mocks"
)

func newAuthTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	return body
}

func TestAuthHandlers_Signup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(authSvc *mocks.MockAuthService)
		expectedStatus int
		validateBody   func(t *testing.T, body map[string]interface{})
	}{
		{
			name:        "successful signup",
			requestBody: SignupRequest{Phone: "0712345678", Name: "Edu"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.SignupFunc = func(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
					return &domain.SignupResult{
						UserID:       1,
						Phone:        "254712345678",
						OTPExpiresAt: time.Now().Add(5 * time.Minute),
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				if data["next_step"] != "verify_otp" {
					t.Errorf("expected next_step verify_otp, got %v", data["next_step"])
				}
				if data["phone"] != "254712345678" {
					t.Errorf("expected normalized phone, got %v", data["phone"])
				}
			},
		},
		{
			name:        "verified duplicate",
			requestBody: SignupRequest{Phone: "0712345678"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.SignupFunc = func(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
					return nil, domain.ErrUserAlreadyExists
				}
			},
			expectedStatus: http.StatusConflict,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name:        "invalid phone",
			requestBody: SignupRequest{Phone: "banana"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.SignupFunc = func(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
					return nil, domain.ErrInvalidPhone
				}
			},
			expectedStatus: http.StatusBadRequest,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name:        "throttled",
			requestBody: SignupRequest{Phone: "0712345678"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.SignupFunc = func(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
					return nil, domain.ErrOTPResendLimit
				}
			},
			expectedStatus: http.StatusTooManyRequests,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name:        "SMS dispatch failure",
			requestBody: SignupRequest{Phone: "0712345678"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.SignupFunc = func(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
					return nil, domain.ErrOTPDispatchFailed
				}
			},
			expectedStatus: http.StatusBadGateway,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name:           "missing phone field",
			requestBody:    map[string]string{"name": "Edu"},
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			tt.setupMocks(authSvc)
			handler := NewAuthHandlers(authSvc, mocks.NewMockTokenLedger(), 1)

			c, w := newAuthTestContext(t, http.MethodPost, "/auth/signup", tt.requestBody)
			handler.Signup(c)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			tt.validateBody(t, decodeBody(t, w))
		})
	}
}

func TestAuthHandlers_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupMocks     func(authSvc *mocks.MockAuthService)
		expectedStatus int
		validateBody   func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "successful login challenge",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, phone string) (*domain.LoginResult, error) {
					return &domain.LoginResult{
						UserID:          1,
						Phone:           "254712345678",
						OTPExpiresAt:    time.Now().Add(5 * time.Minute),
						TokensRemaining: 4,
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				if data["tokens_remaining"] != float64(4) {
					t.Errorf("expected 4 tokens remaining, got %v", data["tokens_remaining"])
				}
			},
		},
		{
			name: "insufficient tokens returns 402 with price and balance",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, phone string) (*domain.LoginResult, error) {
					return nil, &domain.InsufficientTokensError{Required: 1, Balance: 0}
				}
			},
			expectedStatus: http.StatusPaymentRequired,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				if body["required"] != float64(1) {
					t.Errorf("expected required=1, got %v", body["required"])
				}
				if body["balance"] != float64(0) {
					t.Errorf("expected balance=0, got %v", body["balance"])
				}
			},
		},
		{
			name: "unknown phone",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, phone string) (*domain.LoginResult, error) {
					return nil, domain.ErrUserNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name: "unverified account",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, phone string) (*domain.LoginResult, error) {
					return nil, domain.ErrUserNotVerified
				}
			},
			expectedStatus: http.StatusBadRequest,
			validateBody:   func(t *testing.T, body map[string]interface{}) {},
		},
		{
			name: "SMS failure after refund",
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.LoginFunc = func(ctx context.Context, phone string) (*domain.LoginResult, error) {
					return nil, domain.ErrOTPDispatchFailed
				}
			},
			expectedStatus: http.StatusBadGateway,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				msg := body["error"].(string)
				if !strings.Contains(msg, "No tokens were spent") {
					t.Errorf("expected the refund to be mentioned, got %q", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			tt.setupMocks(authSvc)
			handler := NewAuthHandlers(authSvc, mocks.NewMockTokenLedger(), 1)

			c, w := newAuthTestContext(t, http.MethodPost, "/auth/login", LoginRequest{Phone: "0712345678"})
			handler.Login(c)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			tt.validateBody(t, decodeBody(t, w))
		})
	}
}

func TestAuthHandlers_VerifySignupOTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token := strings.Repeat("ab", 32)

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(authSvc *mocks.MockAuthService)
		expectedStatus int
		expectCookie   bool
	}{
		{
			name:        "successful verification sets the session cookie",
			requestBody: VerifyOTPRequest{Phone: "0712345678", Code: "123456"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.VerifySignupOTPFunc = func(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
					return &domain.AuthResult{
						User:      &domain.User{ID: 1, Phone: "254712345678", Verified: true},
						Token:     token,
						ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
						Balance:   5,
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			expectCookie:   true,
		},
		{
			name:        "wrong code",
			requestBody: VerifyOTPRequest{Phone: "0712345678", Code: "000000"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.VerifySignupOTPFunc = func(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
					return nil, domain.ErrOTPInvalid
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "expired code",
			requestBody: VerifyOTPRequest{Phone: "0712345678", Code: "123456"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.VerifySignupOTPFunc = func(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
					return nil, domain.ErrOTPExpired
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "already verified",
			requestBody: VerifyOTPRequest{Phone: "0712345678", Code: "123456"},
			setupMocks: func(authSvc *mocks.MockAuthService) {
				authSvc.VerifySignupOTPFunc = func(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
					return nil, domain.ErrAlreadyVerified
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "code must be six digits",
			requestBody:    VerifyOTPRequest{Phone: "0712345678", Code: "123"},
			setupMocks:     func(authSvc *mocks.MockAuthService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			tt.setupMocks(authSvc)
			handler := NewAuthHandlers(authSvc, mocks.NewMockTokenLedger(), 1)

			c, w := newAuthTestContext(t, http.MethodPost, "/auth/verify-otp", tt.requestBody)
			handler.VerifySignupOTP(c)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var sessionCookie *http.Cookie
			for _, cookie := range w.Result().Cookies() {
				if cookie.Name == SessionCookie {
					sessionCookie = cookie
				}
			}
			if tt.expectCookie {
				if sessionCookie == nil {
					t.Fatal("expected session cookie to be set")
				}
				if sessionCookie.Value != token {
					t.Errorf("expected cookie to carry the session token")
				}
				if !sessionCookie.HttpOnly {
					t.Error("session cookie must be HttpOnly")
				}
			} else if sessionCookie != nil {
				t.Error("no session cookie expected on failure")
			}
		})
	}
}

func TestAuthHandlers_Me(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authSvc := mocks.NewMockAuthService()
	authSvc.GetProfileFunc = func(ctx context.Context, userID uint) (*domain.User, error) {
		return &domain.User{ID: userID, Phone: "254712345678", Name: "Edu", Verified: true}, nil
	}
	ledger := mocks.NewMockTokenLedger()
	ledger.SetBalance(1, 7)
	handler := NewAuthHandlers(authSvc, ledger, 1)

	c, w := newAuthTestContext(t, http.MethodGet, "/auth/me", nil)
	c.Set("user_id", uint(1))
	handler.Me(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["balance"] != float64(7) {
		t.Errorf("expected balance 7, got %v", data["balance"])
	}
	if data["phone"] != "254712345678" {
		t.Errorf("unexpected phone %v", data["phone"])
	}
}

func TestAuthHandlers_Balance(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ledger := mocks.NewMockTokenLedger()
	ledger.SetBalance(1, 3)
	handler := NewAuthHandlers(mocks.NewMockAuthService(), ledger, 1)

	c, w := newAuthTestContext(t, http.MethodGet, "/tokens/balance", nil)
	c.Set("user_id", uint(1))
	handler.Balance(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["balance"] != float64(3) {
		t.Errorf("expected balance 3, got %v", data["balance"])
	}
}

func TestAuthHandlers_Logout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token := strings.Repeat("cd", 32)

	var loggedOut string
	authSvc := mocks.NewMockAuthService()
	authSvc.LogoutFunc = func(ctx context.Context, tok string) error {
		loggedOut = tok
		return nil
	}
	handler := NewAuthHandlers(authSvc, mocks.NewMockTokenLedger(), 1)

	c, w := newAuthTestContext(t, http.MethodPost, "/auth/logout", nil)
	c.Set("session_token", token)
	handler.Logout(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if loggedOut != token {
		t.Errorf("expected logout with the session token, got %q", loggedOut)
	}

	// the cookie is cleared
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookie && cookie.MaxAge >= 0 {
			t.Error("expected the session cookie to be expired")
		}
	}
}

func TestAuthHandlers_Refresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token := strings.Repeat("ef", 32)

	tests := []struct {
		name           string
		refreshed      bool
		expectedStatus int
	}{
		{name: "live session refreshes", refreshed: true, expectedStatus: http.StatusOK},
		{name: "dead session yields 401", refreshed: false, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			authSvc.RefreshSessionFunc = func(ctx context.Context, tok string) (bool, error) {
				return tt.refreshed, nil
			}
			handler := NewAuthHandlers(authSvc, mocks.NewMockTokenLedger(), 1)

			c, w := newAuthTestContext(t, http.MethodPost, "/auth/refresh", nil)
			c.Set("session_token", token)
			handler.Refresh(c)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
