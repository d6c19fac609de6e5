package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/edurotich/smartplanner/domain"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID           uint       `gorm:"primaryKey"`
	Phone        string     `gorm:"uniqueIndex;size:32;not null"`
	Name         string     `gorm:"size:255"`
	Verified     bool       `gorm:"index"`
	OTPCode      *string    `gorm:"column:otp_code;size:8"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	user.ID = dbUser.ID
	return nil
}

// FindByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// SetOTP stores a fresh OTP challenge on the user row
func (r *UserRepositoryImpl) SetOTP(ctx context.Context, userID uint, code string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"otp_code":       code,
		"otp_expires_at": expiresAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ClaimOTP consumes the outstanding challenge. The WHERE clause makes
// the clear a conditional claim: once any caller has consumed the code,
// every later claim matches zero rows and fails.
func (r *UserRepositoryImpl) ClaimOTP(ctx context.Context, userID uint, code string) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND otp_code = ?", userID, code).
		Updates(map[string]interface{}{
			"otp_code":       nil,
			"otp_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, userID); err != nil {
			return err
		}
		return domain.ErrOTPInvalid
	}
	return nil
}

// Activate marks the user verified and clears the signup OTP in one update
func (r *UserRepositoryImpl) Activate(ctx context.Context, userID uint) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"verified":       true,
		"otp_code":       nil,
		"otp_expires_at": nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RecordLogin stores the last successful login timestamp
func (r *UserRepositoryImpl) RecordLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// Delete removes the user row (signup rollback)
func (r *UserRepositoryImpl) Delete(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("id = ?", userID).Delete(&DBUser{}).Error
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:           user.ID,
		Phone:        user.Phone,
		Name:         user.Name,
		Verified:     user.Verified,
		OTPCode:      user.OTPCode,
		OTPExpiresAt: user.OTPExpiresAt,
		LastLoginAt:  user.LastLoginAt,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:           dbUser.ID,
		Phone:        dbUser.Phone,
		Name:         dbUser.Name,
		Verified:     dbUser.Verified,
		OTPCode:      dbUser.OTPCode,
		OTPExpiresAt: dbUser.OTPExpiresAt,
		LastLoginAt:  dbUser.LastLoginAt,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}
}

var _ domain.UserRepository = (*UserRepositoryImpl)(nil)
