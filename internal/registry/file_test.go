package registry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "workspaces.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Workspaces) != 0 || doc.Version != domain.RegistryDocumentVersion {
		t.Errorf("Load() = %+v, want empty current-version document", doc)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workspaces.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	reg := New(store)
	rec := record("ws1", 3000)
	if err := reg.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	got, err := New(reopened).Get(ctx, "ws1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.WebPort != 3000 || !got.CreatedAt.Equal(rec.CreatedAt) || got.LastKnownStatus != domain.StatusRunning {
		t.Errorf("Get() after reopen = %+v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileStoreWritesJSONDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workspaces.json")
	store, _ := NewFileStore(path)

	doc := domain.NewRegistryDocument()
	doc.Workspaces = append(doc.Workspaces, record("ws1", 3001))
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if raw["version"].(float64) != 1 {
		t.Errorf("version = %v, want 1", raw["version"])
	}
	ws := raw["workspaces"].([]any)[0].(map[string]any)
	for _, key := range []string{"name", "service", "container_id", "web_port", "created", "last_accessed", "status"} {
		if _, ok := ws[key]; !ok {
			t.Errorf("record missing key %q", key)
		}
	}
}

func TestFileStoreRejectsCorruptAndFutureDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{nope"},
		{name: "future version", content: `{"version": 99, "workspaces": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "workspaces.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			store, _ := NewFileStore(path)
			_, err := New(store).List(context.Background())
			if !errors.Is(err, domain.ErrRegistryIO) {
				t.Errorf("List() error = %v, want ErrRegistryIO", err)
			}
		})
	}
}

func TestFileStoreLockBlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspaces.json")
	a, _ := NewFileStore(path)
	b, _ := NewFileStore(path)

	unlock, err := a.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := b.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Lock() error = %v, want DeadlineExceeded", err)
	}

	unlock()

	unlockB, err := b.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	unlockB()
}
