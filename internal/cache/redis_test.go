package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestNewDefaultsTTL(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)
	defer c.Close()
	if c.ttl != DefaultTTL {
		t.Fatalf("ttl=%v, want %v", c.ttl, DefaultTTL)
	}
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	// Port 1 on loopback is never a redis server.
	if _, err := Dial(ctx, "127.0.0.1:1", time.Minute, zap.NewNop()); err == nil {
		t.Fatalf("expected dial error")
	}
}
