package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisWindowCounter_Hit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counter := NewRedisWindowCounter(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		hits, remaining, err := counter.Hit(ctx, "login:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits != want {
			t.Errorf("expected %d hits, got %d", want, hits)
		}
		if remaining <= 0 || remaining > time.Minute {
			t.Errorf("expected remaining window within a minute, got %v", remaining)
		}
	}

	if hits, _, _ := counter.Hit(ctx, "login:5.6.7.8", time.Minute); hits != 1 {
		t.Errorf("other keys should count separately, got %d", hits)
	}

	mr.FastForward(time.Minute + time.Second)
	if hits, _, _ := counter.Hit(ctx, "login:1.2.3.4", time.Minute); hits != 1 {
		t.Errorf("expected a fresh window after expiry, got %d", hits)
	}
}

func TestRedisWindowCounter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	if _, _, err := NewRedisWindowCounter(client).Hit(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected an error when redis is down")
	}
}
