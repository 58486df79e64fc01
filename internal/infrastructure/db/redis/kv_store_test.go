package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// These tests need a live Redis; set REDIS_ADDR to run them.
func newTestStore(t *testing.T) *KVStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewKVStore(client, "test:"+uuid.NewString())
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetMany(ctx, map[string]string{"fixly_token": "t1", "fixlyAuthToken": "t1"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	for _, k := range []string{"fixly_token", "fixlyAuthToken"} {
		v, ok, err := s.Get(ctx, k)
		if err != nil || !ok || v != "t1" {
			t.Fatalf("Get(%s) = %q, %v, %v", k, v, ok, err)
		}
	}

	if err := s.Delete(ctx, "fixly_token", "fixlyAuthToken"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, "fixly_token"); ok || err != nil {
		t.Fatalf("expected key gone, ok=%v err=%v", ok, err)
	}
}

func TestKVStore_Namespace(t *testing.T) {
	s := NewKVStore(nil, "")
	if got := s.key("fixly_user"); got != "fixly:session:fixly_user" {
		t.Fatalf("unexpected key %q", got)
	}
}
