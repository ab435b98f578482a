package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "k")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d debería pasar", i+1)
		}
	}

	res, err := l.Allow(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("el cuarto hit debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter got %v", res.RetryAfter)
	}
	if res.Remaining != 0 {
		t.Fatalf("Remaining got %d", res.Remaining)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Hour)

	if res, _ := l.Allow(ctx, "a"); !res.Allowed {
		t.Fatal("primer hit de a debería pasar")
	}
	if res, _ := l.Allow(ctx, "a"); res.Allowed {
		t.Fatal("segundo hit de a debería bloquearse")
	}
	if res, _ := l.Allow(ctx, "b"); !res.Allowed {
		t.Fatal("otra key no comparte la ventana")
	}
}
