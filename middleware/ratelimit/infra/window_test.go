package infra

import (
	"context"
	"testing"
	"time"

	"order-gateway/middleware/ratelimit/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestWindowStore_RejectsEleventhWithinHour(t *testing.T) {
	s := NewWindowStore(10, time.Hour)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := s.Hit(ctx, "1.2.3.4", t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if dec.Remaining != 9-i {
			t.Fatalf("call %d: expected remaining=%d, got %d", i+1, 9-i, dec.Remaining)
		}
	}

	dec, _ := s.Hit(ctx, "1.2.3.4", t0.Add(30*time.Minute))
	if dec.Allowed {
		t.Fatalf("expected 11th call to be rejected")
	}
	// a chamada mais antiga (t0) sai da janela em t0+1h
	if dec.RetryAfter != 30*time.Minute {
		t.Fatalf("expected RetryAfter=30m, got %s", dec.RetryAfter)
	}
}

func TestWindowStore_RejectedCallsAreNotRecorded(t *testing.T) {
	s := NewWindowStore(1, time.Hour)
	ctx := context.Background()

	if dec, _ := s.Hit(ctx, "k", t0); !dec.Allowed {
		t.Fatalf("expected first call allowed")
	}
	for i := 1; i <= 5; i++ {
		if dec, _ := s.Hit(ctx, "k", t0.Add(time.Duration(i)*time.Minute)); dec.Allowed {
			t.Fatalf("expected call to be rejected")
		}
	}
	// só o primeiro instante conta: logo depois de t0+1h libera
	if dec, _ := s.Hit(ctx, "k", t0.Add(time.Hour+time.Second)); !dec.Allowed {
		t.Fatalf("expected call after window to be allowed")
	}
}

func TestWindowStore_AllowsAfterWindowElapses(t *testing.T) {
	s := NewWindowStore(10, time.Hour)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = s.Hit(ctx, "k", t0)
	}
	if dec, _ := s.Hit(ctx, "k", t0.Add(time.Hour)); dec.Allowed {
		t.Fatalf("timestamps exactly one hour old are still inside the window")
	}
	if dec, _ := s.Hit(ctx, "k", t0.Add(time.Hour+time.Millisecond)); !dec.Allowed {
		t.Fatalf("expected call to be allowed once all timestamps are older than the window")
	}
}

func TestWindowStore_KeysAreIndependent(t *testing.T) {
	s := NewWindowStore(1, time.Hour)
	ctx := context.Background()

	if dec, _ := s.Hit(ctx, "a", t0); !dec.Allowed {
		t.Fatalf("expected a allowed")
	}
	if dec, _ := s.Hit(ctx, "b", t0); !dec.Allowed {
		t.Fatalf("expected b allowed")
	}
}

func TestWindowStore_MaxKeysEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewWindowStore(1, time.Hour, WithMaxKeys(2))
	ctx := context.Background()

	_, _ = s.Hit(ctx, "a", t0)
	_, _ = s.Hit(ctx, "b", t0)
	_, _ = s.Hit(ctx, "a", t0.Add(time.Second)) // rejeitada, mas "a" vira a mais recente
	_, _ = s.Hit(ctx, "c", t0.Add(2*time.Second))

	if got := s.Len(); got != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", got)
	}
	// "a" continua bloqueada
	if dec, _ := s.Hit(ctx, domain.Key("a"), t0.Add(3*time.Second)); dec.Allowed {
		t.Fatalf("expected recently used key to keep its window")
	}
	// "b" foi descartada, então recomeça do zero
	if dec, _ := s.Hit(ctx, domain.Key("b"), t0.Add(4*time.Second)); !dec.Allowed {
		t.Fatalf("expected evicted key to start a fresh window")
	}
}

func TestWindowStore_CleanupDropsExpiredKeys(t *testing.T) {
	s := NewWindowStore(10, time.Hour, WithWindowCleanupEvery(0))
	ctx := context.Background()

	_, _ = s.Hit(ctx, "old", t0)
	_, _ = s.Hit(ctx, "fresh", t0.Add(50*time.Minute))

	s.Cleanup(t0.Add(61 * time.Minute))

	if got := s.Len(); got != 1 {
		t.Fatalf("expected only fresh key to remain, got %d keys", got)
	}
}
