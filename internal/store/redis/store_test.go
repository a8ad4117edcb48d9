package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// newTestStore connects to BERTH_TEST_REDIS_ADDR or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("BERTH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BERTH_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	prefix := "berth-test:" + t.Name() + ":"
	s := NewStore(client, prefix)
	t.Cleanup(func() {
		_ = client.Del(ctx, s.docKey, s.lockKey).Err()
		_ = client.Close()
	})
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty key error = %v", err)
	}
	if len(doc.Workspaces) != 0 {
		t.Fatalf("Load() = %+v, want empty", doc)
	}

	doc.Workspaces = append(doc.Workspaces, domain.WorkspaceRecord{
		Name: "ws1", ServiceName: "code-server", WebPort: 3000,
		CreatedAt: time.Now().UTC().Truncate(time.Second), LastKnownStatus: domain.StatusRunning,
	})
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Workspaces) != 1 || got.Workspaces[0].Name != "ws1" || got.Workspaces[0].WebPort != 3000 {
		t.Errorf("Load() = %+v", got)
	}
}

func TestStoreLockExcludes(t *testing.T) {
	s := newTestStore(t)

	unlock, err := s.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := s.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Lock() error = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock2, err := s.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	unlock2()
}
