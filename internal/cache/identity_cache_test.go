package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestIdentityCache(t *testing.T) (*IdentityCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewIdentityCache(client), mr
}

func TestIdentityCache_PutGetClear(t *testing.T) {
	cache, _ := newTestIdentityCache(t)
	ctx := context.Background()

	identity := CachedIdentity{
		StudentID:   "student-1",
		StudentName: "Alice Nguyen",
	}

	t.Run("Put_Then_Get", func(t *testing.T) {
		if err := cache.Put(ctx, "device-1", identity); err != nil {
			t.Fatalf("Failed to put identity: %v", err)
		}

		got, err := cache.Get(ctx, "device-1")
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got == nil {
			t.Fatal("Expected identity, got nil")
		}
		if got.StudentID != identity.StudentID {
			t.Errorf("Expected student ID %q, got %q", identity.StudentID, got.StudentID)
		}
		if got.StudentName != identity.StudentName {
			t.Errorf("Expected student name %q, got %q", identity.StudentName, got.StudentName)
		}
	})

	t.Run("Get_Unknown_Device", func(t *testing.T) {
		got, err := cache.Get(ctx, "never-logged-in")
		if err != nil {
			t.Fatalf("Unexpected error for unknown device: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil identity for unknown device, got %+v", got)
		}
	})

	t.Run("Clear_Removes_Binding", func(t *testing.T) {
		if err := cache.Clear(ctx, "device-1"); err != nil {
			t.Fatalf("Failed to clear identity: %v", err)
		}

		got, err := cache.Get(ctx, "device-1")
		if err != nil {
			t.Fatalf("Unexpected error after clear: %v", err)
		}
		if got != nil {
			t.Errorf("Expected binding to be gone, got %+v", got)
		}
	})

	t.Run("Clear_Is_Idempotent", func(t *testing.T) {
		if err := cache.Clear(ctx, "device-1"); err != nil {
			t.Errorf("Clearing an absent binding should not fail: %v", err)
		}
	})
}

func TestIdentityCache_NoExpiry(t *testing.T) {
	cache, mr := newTestIdentityCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "device-2", CachedIdentity{StudentID: "student-2", StudentName: "Bao Tran"}); err != nil {
		t.Fatalf("Failed to put identity: %v", err)
	}

	// Bindings must survive until logout; a crossing can arrive days later.
	ttl := mr.TTL("identity:device:device-2")
	if ttl != 0 {
		t.Errorf("Expected no TTL on identity binding, got %v", ttl)
	}
}

func TestIdentityCache_NilClient(t *testing.T) {
	cache := NewIdentityCache(nil)
	ctx := context.Background()

	if err := cache.Put(ctx, "device-1", CachedIdentity{}); err != ErrCacheNotAvailable {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
	if _, err := cache.Get(ctx, "device-1"); err != ErrCacheNotAvailable {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
}
