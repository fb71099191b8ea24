package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/util"
)

const (
	otpPrefix        = "company_otp:"
	otpAttemptPrefix = "company_otp_attempts:"
)

var (
	ErrOTPNotFound         = errors.New("otp not found or expired")
	ErrOTPMismatch         = errors.New("otp does not match")
	ErrOTPAttemptsExceeded = errors.New("otp verification attempts exceeded")
)

// verifyAndDeleteScript compares the stored code with the submitted one
// and deletes the key only on a match, in a single atomic step. Two
// concurrent verifies with the same code can never both succeed.
//
// Returns -1 when the key is missing, 0 on mismatch (key kept), 1 on
// a consumed match.
const verifyAndDeleteScript = `
local v = redis.call("GET", KEYS[1])
if v == false then
	return -1
end
if v ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`

// OTPCache stores one-time codes keyed by email. Codes are plaintext
// in Redis so the server-side compare script can match them; TTL keeps
// the exposure window at five minutes.
type OTPCache struct {
	client      *client.RedisClient
	maxAttempts int
}

func NewOTPCache(client *client.RedisClient, maxAttempts int) *OTPCache {
	return &OTPCache{client: client, maxAttempts: maxAttempts}
}

// StoreOTP writes the code for email, replacing any previous code and
// restarting its TTL. The attempt counter resets with each new code.
func (c *OTPCache) StoreOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	key := otpPrefix + email
	if err := c.client.Set(ctx, key, code, ttl); err != nil {
		util.Error("Failed to store OTP", zap.String("email", email), zap.Duration("ttl", ttl), zap.Error(err))
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := c.client.Del(ctx, otpAttemptPrefix+email); err != nil {
		util.Warn("Failed to reset OTP attempt counter", zap.String("email", email), zap.Error(err))
	}

	util.Debug("OTP stored", zap.String("email", email), zap.Duration("ttl", ttl))
	return nil
}

// VerifyAndConsume checks the submitted code against the stored one.
// A match deletes the code so it can be used exactly once. A mismatch
// leaves the code in place and counts against the attempt budget.
func (c *OTPCache) VerifyAndConsume(ctx context.Context, email, code string) error {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	attempts, err := c.client.IncrWithExpire(ctx, otpAttemptPrefix+email, 10*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to count OTP attempt: %w", err)
	}
	if int(attempts) > c.maxAttempts {
		util.Warn("OTP attempt budget exceeded",
			zap.String("email", email),
			zap.Int64("attempts", attempts))
		return ErrOTPAttemptsExceeded
	}

	res, err := c.client.Eval(ctx, verifyAndDeleteScript, []string{otpPrefix + email}, code)
	if err != nil {
		util.Error("OTP verify script failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("otp verify script failed: %w", err)
	}

	outcome, ok := res.(int64)
	if !ok {
		return fmt.Errorf("unexpected otp script result: %v", res)
	}

	switch outcome {
	case 1:
		_ = c.client.Del(ctx, otpAttemptPrefix+email)
		util.Debug("OTP consumed", zap.String("email", email))
		return nil
	case 0:
		return ErrOTPMismatch
	default:
		return ErrOTPNotFound
	}
}

// DeleteOTP removes any stored code for email
func (c *OTPCache) DeleteOTP(ctx context.Context, email string) error {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, otpPrefix+email, otpAttemptPrefix+email); err != nil {
		util.Error("Failed to delete OTP", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("failed to delete OTP: %w", err)
	}

	return nil
}

// GetOTPTTL reports how long the current code remains valid
func (c *OTPCache) GetOTPTTL(ctx context.Context, email string) (time.Duration, error) {
	ctx, cancel := c.client.WithContext(ctx, 5*time.Second)
	defer cancel()

	ttl, err := c.client.TTL(ctx, otpPrefix+email)
	if err != nil {
		util.Error("Failed to get OTP TTL", zap.String("email", email), zap.Error(err))
		return 0, fmt.Errorf("failed to get OTP TTL: %w", err)
	}

	return ttl, nil
}
