// Package sqlite stores the workspace registry in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/utils"
)

// Store keeps one row per workspace. Save rewrites all rows in a single
// transaction so readers never observe a half-written registry.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the registry serializes access anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS registry_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Load reads every row in insertion order.
func (s *Store) Load(ctx context.Context) (*domain.RegistryDocument, error) {
	version, err := s.version(ctx)
	if err != nil {
		return nil, err
	}
	if version > domain.RegistryDocumentVersion {
		return nil, fmt.Errorf("registry has version %d, newer than supported %d",
			version, domain.RegistryDocumentVersion)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT data FROM workspaces ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer utils.Close(rows)

	doc := domain.NewRegistryDocument()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		var rec domain.WorkspaceRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode workspace: %w", err)
		}
		doc.Workspaces = append(doc.Workspaces, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}
	return doc, nil
}

// Save replaces all rows with doc.
func (s *Store) Save(ctx context.Context, doc *domain.RegistryDocument) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM workspaces"); err != nil {
		return fmt.Errorf("failed to clear workspaces: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO workspaces (position, name, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer utils.Close(stmt)

	for i, rec := range doc.Workspaces {
		data, mErr := json.Marshal(rec)
		if mErr != nil {
			err = fmt.Errorf("failed to encode workspace %s: %w", rec.Name, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, i, rec.Name, string(data)); err != nil {
			return fmt.Errorf("failed to insert workspace %s: %w", rec.Name, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO registry_meta (key, value) VALUES ('version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fmt.Sprint(domain.RegistryDocumentVersion),
	); err != nil {
		return fmt.Errorf("failed to write registry version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) version(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT CAST(value AS INTEGER) FROM registry_meta WHERE key = 'version'").Scan(&v)
	if err == sql.ErrNoRows {
		return domain.RegistryDocumentVersion, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read registry version: %w", err)
	}
	return v, nil
}
