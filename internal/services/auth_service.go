package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/edurotich/smartplanner/domain"
	"github.com/edurotich/smartplanner/internal/metrics"
)

// minTokenLength is the shortest session token ValidateSession will even
// look up; anything shorter is malformed by construction (tokens are 64
// hex chars).
const minTokenLength = 32

// AuthConfig holds the policy constants the auth service applies
type AuthConfig struct {
	OTPTTL      time.Duration
	SessionTTL  time.Duration
	SignupGrant int64
	LoginCost   int64
}

// AuthServiceImpl implements domain.AuthService: the signup / verify /
// login / session state machine, including the debit-refund protocol
// around OTP dispatch.
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	ledger      domain.TokenLedger
	sessionRepo domain.SessionRepository
	smsSvc      domain.SMSService
	throttle    domain.OTPThrottle
	recorder    metrics.Recorder
	config      AuthConfig
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	ledger domain.TokenLedger,
	sessionRepo domain.SessionRepository,
	smsSvc domain.SMSService,
	throttle domain.OTPThrottle,
	recorder metrics.Recorder,
	config AuthConfig,
) domain.AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthServiceImpl{
		userRepo:    userRepo,
		ledger:      ledger,
		sessionRepo: sessionRepo,
		smsSvc:      smsSvc,
		throttle:    throttle,
		recorder:    recorder,
		config:      config,
	}
}

// Signup implements domain.AuthService. Creating the user, opening the
// token account with the signup grant and dispatching the OTP are
// all-or-nothing: SMS failure rolls the new rows back so the phone
// number stays free for retry. An unverified duplicate gets a fresh OTP
// instead of an error.
func (s *AuthServiceImpl) Signup(ctx context.Context, phone, name string) (*domain.SignupResult, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil && err != domain.ErrUserNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if existing != nil {
		if existing.Verified {
			return nil, domain.ErrUserAlreadyExists
		}
		return s.resendSignupOTP(ctx, existing)
	}

	if err := s.checkThrottle(ctx, phone); err != nil {
		return nil, err
	}

	code, err := s.generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}
	expiresAt := time.Now().Add(s.config.OTPTTL)

	user := &domain.User{
		Phone:        phone,
		Name:         name,
		Verified:     false,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == domain.ErrUserAlreadyExists {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.ledger.CreateAccount(ctx, user.ID, s.config.SignupGrant); err != nil {
		s.rollbackSignup(ctx, user.ID)
		return nil, fmt.Errorf("failed to open token account: %w", err)
	}

	message := fmt.Sprintf("Welcome to SmartPlanner! Your signup code: %s. FREE signup!", code)
	if err := s.smsSvc.SendSMS(phone, message); err != nil {
		s.recorder.OTPSendFailed("signup")
		s.rollbackSignup(ctx, user.ID)
		log.Printf("SIGNUP_SMS_FAILED: phone=%s error=%v", phone, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPDispatchFailed, err)
	}

	s.markSent(ctx, phone)
	s.recorder.OTPSent("signup")
	log.Printf("SIGNUP_OTP_SENT: user_id=%d phone=%s", user.ID, phone)

	return &domain.SignupResult{
		UserID:       user.ID,
		Phone:        phone,
		OTPExpiresAt: expiresAt,
	}, nil
}

// resendSignupOTP re-issues the signup challenge for an unverified user.
// No ledger movement happens here: the grant was made on first signup.
func (s *AuthServiceImpl) resendSignupOTP(ctx context.Context, user *domain.User) (*domain.SignupResult, error) {
	if err := s.checkThrottle(ctx, user.Phone); err != nil {
		return nil, err
	}

	code, err := s.generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}
	expiresAt := time.Now().Add(s.config.OTPTTL)

	if err := s.userRepo.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	message := fmt.Sprintf("SmartPlanner verification code: %s. Complete your signup!", code)
	if err := s.smsSvc.SendSMS(user.Phone, message); err != nil {
		s.recorder.OTPSendFailed("signup")
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPDispatchFailed, err)
	}

	s.markSent(ctx, user.Phone)
	s.recorder.OTPSent("signup")

	return &domain.SignupResult{
		UserID:       user.ID,
		Phone:        user.Phone,
		OTPExpiresAt: expiresAt,
		Resent:       true,
	}, nil
}

// VerifySignupOTP implements domain.AuthService
func (s *AuthServiceImpl) VerifySignupOTP(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return nil, domain.ErrAlreadyVerified
	}
	if err := checkOTP(user, code, time.Now()); err != nil {
		return nil, err
	}

	// verified=true and OTP cleared in one update; the code is single-use
	if err := s.userRepo.Activate(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	user.Verified = true
	user.OTPCode = nil
	user.OTPExpiresAt = nil

	log.Printf("USER_VERIFIED: user_id=%d phone=%s", user.ID, phone)
	return s.issueSession(ctx, user)
}

// Login implements domain.AuthService. The login OTP is token-gated:
// one token is debited atomically up front, and any failure after the
// debit (OTP persistence, SMS dispatch) refunds the exact amount before
// the error reaches the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, phone string) (*domain.LoginResult, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !user.Verified {
		return nil, domain.ErrUserNotVerified
	}

	if err := s.checkThrottle(ctx, phone); err != nil {
		return nil, err
	}

	ok, err := s.ledger.Debit(ctx, user.ID, s.config.LoginCost)
	if err != nil {
		return nil, fmt.Errorf("failed to debit login fee: %w", err)
	}
	if !ok {
		balance, berr := s.ledger.Balance(ctx, user.ID)
		if berr != nil {
			log.Printf("Failed to read balance for user %d: %v", user.ID, berr)
		}
		return nil, &domain.InsufficientTokensError{Required: s.config.LoginCost, Balance: balance}
	}
	s.recorder.TokenDebited(s.config.LoginCost)

	code, err := s.generateOTP()
	if err != nil {
		s.refund(ctx, user.ID, s.config.LoginCost)
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}
	expiresAt := time.Now().Add(s.config.OTPTTL)

	// the debit is durable before any OTP side effect, so the refund
	// below is always well-defined
	if err := s.userRepo.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		s.refund(ctx, user.ID, s.config.LoginCost)
		return nil, fmt.Errorf("failed to store login OTP: %w", err)
	}

	message := fmt.Sprintf("SmartPlanner login code: %s. Valid for %d minutes.", code, int(s.config.OTPTTL.Minutes()))
	if err := s.smsSvc.SendSMS(phone, message); err != nil {
		s.recorder.OTPSendFailed("login")
		s.refund(ctx, user.ID, s.config.LoginCost)
		log.Printf("LOGIN_SMS_FAILED: user_id=%d phone=%s error=%v", user.ID, phone, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPDispatchFailed, err)
	}

	s.markSent(ctx, phone)
	s.recorder.OTPSent("login")

	balance, err := s.ledger.Balance(ctx, user.ID)
	if err != nil {
		// the OTP is out; report the challenge even if the read failed
		log.Printf("BALANCE_READ_FAILED: user_id=%d error=%v", user.ID, err)
		balance = 0
	}

	return &domain.LoginResult{
		UserID:          user.ID,
		Phone:           phone,
		OTPExpiresAt:    expiresAt,
		TokensRemaining: balance,
	}, nil
}

// VerifyLoginOTP implements domain.AuthService
func (s *AuthServiceImpl) VerifyLoginOTP(ctx context.Context, phone, code string) (*domain.AuthResult, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !user.Verified {
		return nil, domain.ErrUserNotVerified
	}
	if err := checkOTP(user, code, time.Now()); err != nil {
		return nil, err
	}

	// the claim is the single-use gate: of any concurrent verifications
	// holding the same read snapshot, only the one that consumes the
	// stored code proceeds to a session
	if err := s.userRepo.ClaimOTP(ctx, user.ID, code); err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to claim OTP: %w", err)
	}
	user.OTPCode = nil
	user.OTPExpiresAt = nil

	now := time.Now()
	if err := s.userRepo.RecordLogin(ctx, user.ID, now); err != nil {
		log.Printf("LAST_LOGIN_UPDATE_FAILED: user_id=%d error=%v", user.ID, err)
	}

	s.recorder.LoginSucceeded()
	log.Printf("USER_LOGIN: user_id=%d phone=%s", user.ID, phone)
	return s.issueSession(ctx, user)
}

// issueSession replaces any existing session for the user with a fresh
// one and returns it with the current token balance.
func (s *AuthServiceImpl) issueSession(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.SessionTTL),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Replace(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.recorder.SessionReplaced()

	balance, err := s.ledger.Balance(ctx, user.ID)
	if err != nil {
		log.Printf("BALANCE_READ_FAILED: user_id=%d error=%v", user.ID, err)
		balance = 0
	}

	return &domain.AuthResult{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Balance:   balance,
	}, nil
}

// ValidateSession implements domain.AuthService. An invalid token of any
// kind (malformed, unknown, expired, orphaned) yields (nil, nil).
func (s *AuthServiceImpl) ValidateSession(ctx context.Context, token string) (*domain.SessionInfo, error) {
	if len(token) < minTokenLength {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			// session outlived its user; reap it
			if delErr := s.sessionRepo.Delete(ctx, token); delErr != nil {
				log.Printf("ORPHAN_SESSION_REAP_FAILED: user_id=%d error=%v", session.UserID, delErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return &domain.SessionInfo{Session: session, User: user}, nil
}

// RefreshSession implements domain.AuthService. Returning false for an
// invalid session is deliberate: callers refresh opportunistically on
// every authenticated request.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, token string) (bool, error) {
	if len(token) < minTokenLength {
		return false, nil
	}
	return s.sessionRepo.Refresh(ctx, token, time.Now().Add(s.config.SessionTTL))
}

// Logout implements domain.AuthService. Logging out twice, or with a
// garbage token, succeeds: the caller's desired end state holds either way.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetProfile implements domain.AuthService
func (s *AuthServiceImpl) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// refund reverses a login debit after a confirmed downstream failure.
// It credits the delta rather than restoring a captured balance, so
// concurrent ledger movement is never clobbered.
func (s *AuthServiceImpl) refund(ctx context.Context, userID uint, amount int64) {
	if err := s.ledger.Refund(ctx, userID, amount); err != nil {
		// the one state this design cannot repair automatically; make it loud
		log.Printf("REFUND_FAILED: user_id=%d amount=%d error=%v", userID, amount, err)
		return
	}
	s.recorder.TokenRefunded(amount)
	log.Printf("TOKEN_REFUNDED: user_id=%d amount=%d", userID, amount)
}

func (s *AuthServiceImpl) checkThrottle(ctx context.Context, phone string) error {
	if s.throttle == nil {
		return nil
	}
	ok, wait, err := s.throttle.CanSend(ctx, phone)
	if err != nil {
		// fail open: a broken throttle must not block authentication
		log.Printf("OTP_THROTTLE_CHECK_FAILED: phone=%s error=%v", phone, err)
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: retry in %ds", domain.ErrOTPResendLimit, int(wait.Seconds()))
	}
	return nil
}

func (s *AuthServiceImpl) markSent(ctx context.Context, phone string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.MarkSent(ctx, phone); err != nil {
		log.Printf("OTP_THROTTLE_MARK_FAILED: phone=%s error=%v", phone, err)
	}
}

// rollbackSignup deletes the user and token rows created by a signup
// whose OTP dispatch failed, so the phone number stays available. The
// user row goes first: if the balance delete then fails, the orphan
// balance row blocks nothing, whereas a surviving user without a
// balance row would wedge every later login on the debit.
func (s *AuthServiceImpl) rollbackSignup(ctx context.Context, userID uint) {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		log.Printf("SIGNUP_ROLLBACK_FAILED: user_id=%d table=users error=%v", userID, err)
		return
	}
	if err := s.ledger.DeleteAccount(ctx, userID); err != nil {
		log.Printf("SIGNUP_ROLLBACK_FAILED: user_id=%d table=token_balances error=%v", userID, err)
	}
}

// checkOTP validates an outstanding challenge. A code mismatch and an
// expired code are distinct failures: the caller's remedies differ.
func checkOTP(user *domain.User, code string, now time.Time) error {
	if !user.HasPendingOTP() || *user.OTPCode != code {
		return domain.ErrOTPInvalid
	}
	if !now.Before(*user.OTPExpiresAt) {
		return domain.ErrOTPExpired
	}
	return nil
}

// generateOTP returns a 6-digit code drawn uniformly from [100000, 999999]
func (s *AuthServiceImpl) generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateSessionToken returns 32 bytes of CSPRNG output, hex-encoded.
// The token is opaque everywhere else: stored, compared, never parsed.
func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
