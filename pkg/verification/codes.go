// Package verification issues and redeems short-lived email verification
// codes backed by redis.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeMismatch is returned when no code is stored for the destination or
// the presented code does not match.
var ErrCodeMismatch = errors.New("verification code mismatch")

const codeDigits = 6

// CodeStore issues single-use numeric verification codes keyed by
// destination address.
type CodeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCodeStore creates a code store. Codes expire after ttl.
func NewCodeStore(rdb *redis.Client, ttl time.Duration) *CodeStore {
	return &CodeStore{rdb: rdb, ttl: ttl}
}

func codeKey(destination string) string {
	return "verification:code:" + destination
}

// Issue generates a fresh 6-digit code for the destination, replacing any
// outstanding one, and returns it for delivery.
func (s *CodeStore) Issue(ctx context.Context, destination string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, codeKey(destination), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}
	return code, nil
}

// consumeScript deletes the stored code only when it matches the presented
// one, so a mistyped attempt leaves the code redeemable until it expires.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Consume redeems a code. A matching code is removed atomically so it can
// be redeemed at most once; a mismatch leaves the stored code in place.
func (s *CodeStore) Consume(ctx context.Context, destination, code string) error {
	deleted, err := consumeScript.Run(ctx, s.rdb, []string{codeKey(destination)}, code).Int()
	if err != nil {
		return fmt.Errorf("failed to redeem verification code: %w", err)
	}
	if deleted == 0 {
		return ErrCodeMismatch
	}
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
