package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block others.
	DefaultLockTTL = 30 * time.Second
	// lockRetry is the polling interval while waiting for the lock.
	lockRetry = 25 * time.Millisecond
)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps the registry document as one JSON string in Redis.
type Store struct {
	client  redis.UniversalClient
	docKey  string
	lockKey string
	lockTTL time.Duration
}

// NewStore creates a Redis-backed registry store under prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		client:  client,
		docKey:  DocumentKey(prefix),
		lockKey: LockKey(prefix),
		lockTTL: DefaultLockTTL,
	}
}

// Load fetches the document. An absent key is an empty registry.
func (s *Store) Load(ctx context.Context) (*domain.RegistryDocument, error) {
	data, err := s.client.Get(ctx, s.docKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.NewRegistryDocument(), nil
		}
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}

	var doc domain.RegistryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry: %w", err)
	}
	if doc.Version > domain.RegistryDocumentVersion {
		return nil, fmt.Errorf("registry has version %d, newer than supported %d",
			doc.Version, domain.RegistryDocumentVersion)
	}
	if doc.Workspaces == nil {
		doc.Workspaces = []domain.WorkspaceRecord{}
	}
	doc.Version = domain.RegistryDocumentVersion
	return &doc, nil
}

// Save replaces the document. A single SET is atomic on the server.
func (s *Store) Save(ctx context.Context, doc *domain.RegistryDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := s.client.Set(ctx, s.docKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// Lock acquires a SET NX lease so that several berth processes sharing
// one Redis serialize their read-modify-write cycles.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, s.lockKey, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire registry lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's ctx may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, s.client, []string{s.lockKey}, token).Err()
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
