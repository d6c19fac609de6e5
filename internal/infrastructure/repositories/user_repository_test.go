package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edurotich/smartplanner/domain"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&DBUser{}, &DBTokenBalance{}, &DBPayment{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func TestUserRepositoryImpl_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	code := "123456"
	expiry := time.Now().Add(5 * time.Minute)
	user := &domain.User{
		Phone:        "254712345678",
		Name:         "Edu",
		OTPCode:      &code,
		OTPExpiresAt: &expiry,
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected the generated ID to be written back")
	}

	// same phone again hits the unique index
	dup := &domain.User{Phone: "254712345678", Name: "Other"}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestUserRepositoryImpl_FindByPhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Phone: "254712345678", Name: "Edu"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := repo.FindByPhone(ctx, "254712345678")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ID != user.ID || found.Name != "Edu" {
		t.Errorf("unexpected user: %+v", found)
	}

	if _, err := repo.FindByPhone(ctx, "254700000000"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryImpl_OTP_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Phone: "254712345678"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	expiry := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	if err := repo.SetOTP(ctx, user.ID, "654321", expiry); err != nil {
		t.Fatalf("set OTP failed: %v", err)
	}

	found, _ := repo.FindByPhone(ctx, "254712345678")
	if !found.HasPendingOTP() {
		t.Fatal("expected a pending OTP")
	}
	if *found.OTPCode != "654321" {
		t.Errorf("expected code 654321, got %s", *found.OTPCode)
	}

	// a claim with the wrong code consumes nothing
	if err := repo.ClaimOTP(ctx, user.ID, "000000"); !errors.Is(err, domain.ErrOTPInvalid) {
		t.Errorf("expected ErrOTPInvalid for wrong code, got %v", err)
	}

	if err := repo.ClaimOTP(ctx, user.ID, "654321"); err != nil {
		t.Fatalf("claim OTP failed: %v", err)
	}
	found, _ = repo.FindByPhone(ctx, "254712345678")
	if found.HasPendingOTP() {
		t.Error("expected OTP to be consumed")
	}

	// the code is single-use: a second claim finds nothing to consume
	if err := repo.ClaimOTP(ctx, user.ID, "654321"); !errors.Is(err, domain.ErrOTPInvalid) {
		t.Errorf("expected ErrOTPInvalid on replayed claim, got %v", err)
	}

	// SetOTP on a vanished user reports not found
	if err := repo.SetOTP(ctx, 9999, "111111", expiry); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.ClaimOTP(ctx, 9999, "111111"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryImpl_Activate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	code := "123456"
	expiry := time.Now().Add(5 * time.Minute)
	user := &domain.User{Phone: "254712345678", OTPCode: &code, OTPExpiresAt: &expiry}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Activate(ctx, user.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	found, _ := repo.FindByID(ctx, user.ID)
	if !found.Verified {
		t.Error("expected user to be verified")
	}
	if found.HasPendingOTP() {
		t.Error("activation must consume the OTP")
	}

	if err := repo.Activate(ctx, 9999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryImpl_RecordLogin(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Phone: "254712345678", Verified: true}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	at := time.Now().Truncate(time.Second)
	if err := repo.RecordLogin(ctx, user.ID, at); err != nil {
		t.Fatalf("record login failed: %v", err)
	}

	found, _ := repo.FindByID(ctx, user.ID)
	if found.LastLoginAt == nil {
		t.Fatal("expected last_login_at to be set")
	}
	if !found.LastLoginAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, *found.LastLoginAt)
	}
}

func TestUserRepositoryImpl_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Phone: "254712345678"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound after delete, got %v", err)
	}

	// the phone is free for a fresh signup
	again := &domain.User{Phone: "254712345678"}
	if err := repo.Create(ctx, again); err != nil {
		t.Errorf("re-create after delete failed: %v", err)
	}
}
