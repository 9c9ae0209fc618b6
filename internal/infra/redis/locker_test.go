package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLockerIsExclusive(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	a := NewLocker(newClient(mr))
	b := NewLocker(newClient(mr))

	release, ok, err := a.TryLock(ctx, "matchmaking:process", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := b.TryLock(ctx, "matchmaking:process", 10*time.Second); ok {
		t.Fatalf("second instance must not get the lock")
	}

	release()
	if mr.Exists("lock:matchmaking:process") {
		t.Fatalf("expected lock key removed on release")
	}
	if _, ok, _ := b.TryLock(ctx, "matchmaking:process", 10*time.Second); !ok {
		t.Fatalf("expected lock free after release")
	}
}

func TestLockerReleaseKeepsForeignLock(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	l := NewLocker(newClient(mr))
	release, ok, _ := l.TryLock(ctx, "k", time.Second)
	if !ok {
		t.Fatalf("expected lock")
	}

	// our lock expires and another holder takes it
	mr.FastForward(2 * time.Second)
	if _, ok, _ := l.TryLock(ctx, "k", time.Minute); !ok {
		t.Fatalf("expected lock after expiry")
	}
	release()
	if !mr.Exists("lock:k") {
		t.Fatalf("stale release must not delete the new holder's lock")
	}
}
