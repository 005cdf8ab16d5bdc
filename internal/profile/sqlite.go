package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps one row per profile. The profile body is stored as JSON so
// the onboarding sections can evolve without migrations.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	completed BOOLEAN NOT NULL DEFAULT 0,
	body TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_profiles_completed ON profiles(completed);
`

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM profiles WHERE completed = 1 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}

		p, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	return profiles, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Profile, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM profiles WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}

	return decodeBody(body)
}

func (s *SQLiteStore) Upsert(ctx context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}

	merged := p
	existing, err := s.Get(ctx, p.ID)
	switch {
	case err == nil:
		merged = existing.Merge(p)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, completed, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed = excluded.completed,
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP`,
		merged.ID, merged.Completed, string(body),
	)
	if err != nil {
		return fmt.Errorf("upserting profile %s: %w", p.ID, err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func decodeBody(body string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("decoding profile body: %w", err)
	}
	return &p, nil
}
