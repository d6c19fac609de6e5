package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/edurotich/smartplanner/domain"
)

// TokenLedgerImpl implements domain.TokenLedger using GORM.
// Balance mutations are single conditional UPDATE statements so that
// concurrent requests can never interleave a read-modify-write.
type TokenLedgerImpl struct {
	db *gorm.DB
}

// DBTokenBalance represents the database model for a user's token balance
type DBTokenBalance struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex;not null"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (DBTokenBalance) TableName() string {
	return "token_balances"
}

// NewTokenLedger creates a new token ledger
func NewTokenLedger(db *gorm.DB) domain.TokenLedger {
	return &TokenLedgerImpl{db: db}
}

// CreateAccount opens a balance row with the signup grant
func (l *TokenLedgerImpl) CreateAccount(ctx context.Context, userID uint, openingBalance int64) error {
	row := &DBTokenBalance{UserID: userID, Balance: openingBalance}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAccountExists
		}
		return err
	}
	return nil
}

// Balance implements domain.TokenLedger
func (l *TokenLedgerImpl) Balance(ctx context.Context, userID uint) (int64, error) {
	var row DBTokenBalance
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}
	return row.Balance, nil
}

// Credit increases the balance by amount as a single atomic increment
func (l *TokenLedgerImpl) Credit(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	res := l.db.WithContext(ctx).Model(&DBTokenBalance{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Debit atomically checks sufficiency and decrements. The WHERE clause
// carries the balance guard; rows-affected zero with an existing account
// means insufficient funds, never a partial decrement.
func (l *TokenLedgerImpl) Debit(ctx context.Context, userID uint, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	res := l.db.WithContext(ctx).Model(&DBTokenBalance{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// distinguish "no such account" from "insufficient"
	var count int64
	if err := l.db.WithContext(ctx).Model(&DBTokenBalance{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, domain.ErrUserNotFound
	}
	return false, nil
}

// Refund reverses a prior debit by crediting the same amount. It is a
// delta credit, never a write of a previously captured balance.
func (l *TokenLedgerImpl) Refund(ctx context.Context, userID uint, amount int64) error {
	return l.Credit(ctx, userID, amount)
}

// DeleteAccount removes the balance row (signup rollback)
func (l *TokenLedgerImpl) DeleteAccount(ctx context.Context, userID uint) error {
	return l.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&DBTokenBalance{}).Error
}

var _ domain.TokenLedger = (*TokenLedgerImpl)(nil)
