package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edurotich/smartplanner/domain"
)

// PaymentRepositoryImpl implements domain.PaymentRepository using GORM
type PaymentRepositoryImpl struct {
	db *gorm.DB
}

// DBPayment represents the database model for a mobile-money payment.
// MpesaReceipt carries a unique index so a replayed callback can never
// record (and credit) the same receipt twice.
type DBPayment struct {
	ID                string     `gorm:"primaryKey;size:36"`
	UserID            uint       `gorm:"index"`
	Phone             string     `gorm:"size:32"`
	CheckoutRequestID string     `gorm:"uniqueIndex;size:64;not null"`
	MpesaReceipt      *string    `gorm:"uniqueIndex;size:32"`
	Amount            float64
	TokensAdded       int64
	Status            string `gorm:"index;size:16"`
	FailureReason     string `gorm:"size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (DBPayment) TableName() string {
	return "payments"
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

// CreatePending records an initiated STK push before the gateway confirms
func (r *PaymentRepositoryImpl) CreatePending(ctx context.Context, payment *domain.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.Status = domain.PaymentPending
	return r.db.WithContext(ctx).Create(r.domainToDB(payment)).Error
}

// CompleteAndCredit records the receipt and credits the ledger in one
// transaction. Returns false without touching the balance when this
// receipt or checkout request was already credited.
func (r *PaymentRepositoryImpl) CompleteAndCredit(ctx context.Context, userID uint, n *domain.PaymentNotification, tokens int64) (bool, error) {
	credited := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing DBPayment
		err := tx.Where("checkout_request_id = ?", n.CheckoutRequestID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Status == string(domain.PaymentCompleted) {
				return nil // replayed callback
			}
			receipt := n.MpesaReceipt
			res := tx.Model(&DBPayment{}).
				Where("checkout_request_id = ? AND status <> ?", n.CheckoutRequestID, string(domain.PaymentCompleted)).
				Updates(map[string]interface{}{
					"user_id":       userID,
					"mpesa_receipt": receipt,
					"amount":        n.Amount,
					"tokens_added":  tokens,
					"status":        string(domain.PaymentCompleted),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // lost the race to a concurrent callback delivery
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// callback for a push we never recorded; still honor the credit
			receipt := n.MpesaReceipt
			row := &DBPayment{
				ID:                uuid.NewString(),
				UserID:            userID,
				Phone:             n.Phone,
				CheckoutRequestID: n.CheckoutRequestID,
				MpesaReceipt:      &receipt,
				Amount:            n.Amount,
				TokensAdded:       tokens,
				Status:            string(domain.PaymentCompleted),
			}
			if err := tx.Create(row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return nil // receipt already recorded under another row
				}
				return err
			}
		default:
			return err
		}

		res := tx.Model(&DBTokenBalance{}).
			Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", tokens))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		credited = true
		return nil
	})
	return credited, err
}

// MarkFailed records a gateway-reported failure for the pending push
func (r *PaymentRepositoryImpl) MarkFailed(ctx context.Context, checkoutRequestID, reason string) error {
	return r.db.WithContext(ctx).Model(&DBPayment{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, string(domain.PaymentPending)).
		Updates(map[string]interface{}{
			"status":         string(domain.PaymentFailed),
			"failure_reason": reason,
		}).Error
}

// FindByCheckoutID implements domain.PaymentRepository
func (r *PaymentRepositoryImpl) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	var row DBPayment
	err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&row), nil
}

func (r *PaymentRepositoryImpl) domainToDB(p *domain.Payment) *DBPayment {
	return &DBPayment{
		ID:                p.ID,
		UserID:            p.UserID,
		Phone:             p.Phone,
		CheckoutRequestID: p.CheckoutRequestID,
		MpesaReceipt:      p.MpesaReceipt,
		Amount:            p.Amount,
		TokensAdded:       p.TokensAdded,
		Status:            string(p.Status),
		FailureReason:     p.FailureReason,
	}
}

func (r *PaymentRepositoryImpl) dbToDomain(row *DBPayment) *domain.Payment {
	return &domain.Payment{
		ID:                row.ID,
		UserID:            row.UserID,
		Phone:             row.Phone,
		CheckoutRequestID: row.CheckoutRequestID,
		MpesaReceipt:      row.MpesaReceipt,
		Amount:            row.Amount,
		TokensAdded:       row.TokensAdded,
		Status:            domain.PaymentStatus(row.Status),
		FailureReason:     row.FailureReason,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

var _ domain.PaymentRepository = (*PaymentRepositoryImpl)(nil)
