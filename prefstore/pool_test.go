package prefstore

import (
	"context"
	"testing"
	"time"
)

func TestPoolSignsInEagerly(t *testing.T) {
	backend := newFakeBackend(t)
	if _, err := NewPool(context.Background(), backend.config()); err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.signIns != 2 {
		t.Fatalf("signed in %d times, want one per connection", backend.signIns)
	}
}

func TestTokenRefreshAfterTTL(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := backend.config()
	cfg.PoolSize = 1
	cfg.TokenTTL = 0 // expire immediately

	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	conn, release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	time.Sleep(time.Millisecond)
	token, err := conn.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "tok-refreshed" {
		t.Fatalf("got token %q, want refreshed one", token)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.refreshes != 1 {
		t.Fatalf("refreshed %d times, want 1", backend.refreshes)
	}
}

func TestTokenFreshWithinTTL(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := backend.config()
	cfg.PoolSize = 1

	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	conn, release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	token, err := conn.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "tok-initial" {
		t.Fatalf("got token %q, want the sign-in token", token)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.refreshes != 0 {
		t.Fatalf("refreshed %d times, want 0", backend.refreshes)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := backend.config()
	cfg.PoolSize = 1

	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	_, release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := pool.Acquire(ctx); err == nil {
		t.Fatal("expected Acquire to fail while the only connection is leased")
	}

	release()
	release() // second call is a no-op

	conn, release2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer release2()
	if conn == nil {
		t.Fatal("expected a connection")
	}
}
