package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/edurotich/smartplanner/domain"
	"github.com/edurotich/smartplanner/internal/metrics"
)

// PaymentServiceImpl implements domain.PaymentService: STK push
// initiation and the idempotent callback credit.
type PaymentServiceImpl struct {
	userRepo    domain.UserRepository
	paymentRepo domain.PaymentRepository
	gateway     domain.PaymentGateway
	recorder    metrics.Recorder
	// tokensPerKES converts the paid amount to ledger tokens (floor)
	tokensPerKES float64
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	userRepo domain.UserRepository,
	paymentRepo domain.PaymentRepository,
	gateway domain.PaymentGateway,
	recorder metrics.Recorder,
	tokensPerKES float64,
) domain.PaymentService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PaymentServiceImpl{
		userRepo:     userRepo,
		paymentRepo:  paymentRepo,
		gateway:      gateway,
		recorder:     recorder,
		tokensPerKES: tokensPerKES,
	}
}

// InitiateTopUp implements domain.PaymentService
func (s *PaymentServiceImpl) InitiateTopUp(ctx context.Context, userID uint, phone string, amountKES int64) (*domain.TopUpResult, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if amountKES <= 0 {
		return nil, fmt.Errorf("top-up amount must be positive, got %d", amountKES)
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, phone, amountKES, fmt.Sprintf("SP-%d", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to initiate STK push: %w", err)
	}

	payment := &domain.Payment{
		UserID:            userID,
		Phone:             phone,
		CheckoutRequestID: resp.CheckoutRequestID,
		Amount:            float64(amountKES),
	}
	if err := s.paymentRepo.CreatePending(ctx, payment); err != nil {
		// the push is already out; the callback path can still record and
		// credit this payment, so don't fail the request
		log.Printf("PENDING_PAYMENT_RECORD_FAILED: checkout_id=%s error=%v", resp.CheckoutRequestID, err)
	}

	log.Printf("STK_PUSH_INITIATED: user_id=%d phone=%s amount=%d checkout_id=%s",
		userID, phone, amountKES, resp.CheckoutRequestID)

	return &domain.TopUpResult{
		PaymentID:         payment.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// HandleCallback implements domain.PaymentService. Replayed callbacks
// for the same receipt credit at most once; a payer phone that matches
// no user is acknowledged and logged for reconciliation, never errored,
// since the gateway retries on failure and the money is already taken.
func (s *PaymentServiceImpl) HandleCallback(ctx context.Context, n *domain.PaymentNotification) error {
	if n.ResultCode != 0 {
		if err := s.paymentRepo.MarkFailed(ctx, n.CheckoutRequestID, n.ResultDesc); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		log.Printf("PAYMENT_FAILED: checkout_id=%s result=%d desc=%q", n.CheckoutRequestID, n.ResultCode, n.ResultDesc)
		return nil
	}

	phone, err := domain.NormalizePhone(n.Phone)
	if err != nil {
		log.Printf("PAYMENT_BAD_PHONE: checkout_id=%s phone=%q", n.CheckoutRequestID, n.Phone)
		return nil
	}
	n.Phone = phone

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		if err == domain.ErrUserNotFound {
			log.Printf("PAYMENT_ORPHANED: checkout_id=%s receipt=%s phone=%s", n.CheckoutRequestID, n.MpesaReceipt, phone)
			return nil
		}
		return fmt.Errorf("failed to look up payer: %w", err)
	}

	tokens := int64(math.Floor(n.Amount * s.tokensPerKES))
	if tokens <= 0 {
		log.Printf("PAYMENT_ZERO_TOKENS: checkout_id=%s amount=%f", n.CheckoutRequestID, n.Amount)
		return nil
	}

	credited, err := s.paymentRepo.CompleteAndCredit(ctx, user.ID, n, tokens)
	if err != nil {
		return fmt.Errorf("failed to credit payment: %w", err)
	}
	if !credited {
		s.recorder.PaymentDuplicate()
		log.Printf("PAYMENT_DUPLICATE: checkout_id=%s receipt=%s", n.CheckoutRequestID, n.MpesaReceipt)
		return nil
	}

	s.recorder.TokensCredited(tokens)
	log.Printf("CREDIT_APPLIED: user_id=%d tokens=%d receipt=%s", user.ID, tokens, n.MpesaReceipt)
	return nil
}

// Status implements domain.PaymentService
func (s *PaymentServiceImpl) Status(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return s.paymentRepo.FindByCheckoutID(ctx, checkoutRequestID)
}

var _ domain.PaymentService = (*PaymentServiceImpl)(nil)
