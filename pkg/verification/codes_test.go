package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupCodeStore(t *testing.T, ttl time.Duration) (context.Context, *CodeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return context.Background(), NewCodeStore(client, ttl), mr
}

func TestCodeStore_IssueAndConsume(t *testing.T) {
	ctx, s, _ := setupCodeStore(t, 5*time.Minute)

	code, err := s.Issue(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("code %q contains non-digit", code)
		}
	}

	if err := s.Consume(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("Consume() failed: %v", err)
	}

	// second redemption of the same code fails
	if err := s.Consume(ctx, "alice@example.com", code); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch on reuse, got: %v", err)
	}
}

func TestCodeStore_WrongCodeLeavesStored(t *testing.T) {
	ctx, s, _ := setupCodeStore(t, 5*time.Minute)

	code, err := s.Issue(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	if err := s.Consume(ctx, "bob@example.com", "999999"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch for wrong code, got: %v", err)
	}
	// a mistyped attempt must not invalidate the code the user was sent
	if err := s.Consume(ctx, "bob@example.com", code); err != nil {
		t.Fatalf("correct code rejected after a wrong attempt: %v", err)
	}
	// but redemption is still single-use
	if err := s.Consume(ctx, "bob@example.com", code); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch on reuse, got: %v", err)
	}
}

func TestCodeStore_Expiry(t *testing.T) {
	ctx, s, mr := setupCodeStore(t, 300*time.Second)

	code, err := s.Issue(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	mr.FastForward(301 * time.Second)

	if err := s.Consume(ctx, "carol@example.com", code); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected expired code to be rejected, got: %v", err)
	}
}

func TestCodeStore_ReissueReplaces(t *testing.T) {
	ctx, s, _ := setupCodeStore(t, 5*time.Minute)

	first, err := s.Issue(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	second, err := s.Issue(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	if first != second {
		if err := s.Consume(ctx, "dave@example.com", first); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected replaced code to be rejected, got: %v", err)
		}
	}
	if err := s.Consume(ctx, "dave@example.com", second); err != nil {
		t.Fatalf("Consume() of latest code failed: %v", err)
	}
}

func TestSendLimiter(t *testing.T) {
	l := NewSendLimiter(1, 2)

	if !l.Allow("alice@example.com") {
		t.Fatalf("first send should be allowed")
	}
	if !l.Allow("alice@example.com") {
		t.Fatalf("burst send should be allowed")
	}
	if l.Allow("alice@example.com") {
		t.Fatalf("third immediate send should be throttled")
	}

	// other destinations are limited independently
	if !l.Allow("bob@example.com") {
		t.Fatalf("unrelated destination should not be throttled")
	}
}
