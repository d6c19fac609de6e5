package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edurotich/smartplanner/domain"
)

// OTPThrottleImpl implements domain.OTPThrottle with a Redis TTL key per
// phone number.
type OTPThrottleImpl struct {
	client *redis.Client
	window time.Duration
}

// NewOTPThrottle creates a new Redis-backed OTP throttle
func NewOTPThrottle(client *redis.Client, window time.Duration) domain.OTPThrottle {
	return &OTPThrottleImpl{client: client, window: window}
}

func (t *OTPThrottleImpl) key(phone string) string {
	return fmt.Sprintf("otp:res:%s", phone)
}

// CanSend reports whether the resend window for phone has elapsed, and
// how long the caller must wait otherwise.
func (t *OTPThrottleImpl) CanSend(ctx context.Context, phone string) (bool, time.Duration, error) {
	ttl, err := t.client.TTL(ctx, t.key(phone)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}

	// TTL <= 0 means the key is absent or expired
	if ttl <= 0 {
		return true, 0, nil
	}
	return false, ttl, nil
}

// MarkSent starts the resend window for phone
func (t *OTPThrottleImpl) MarkSent(ctx context.Context, phone string) error {
	return t.client.Set(ctx, t.key(phone), 1, t.window).Err()
}

var _ domain.OTPThrottle = (*OTPThrottleImpl)(nil)
