// Package analytics records privacy-conscious site metrics in SQLite: visits
// with hashed IPs, outbound product clicks, gallery interactions and contact
// messages.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors(timestamp);

CREATE TABLE IF NOT EXISTS outbound_clicks (
	product TEXT PRIMARY KEY,
	clicks INTEGER NOT NULL DEFAULT 0,
	last_click DATETIME
);

CREATE TABLE IF NOT EXISTS gallery_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product TEXT NOT NULL,
	op TEXT NOT NULL,
	view TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_messages (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);
`

// Retention is how long visitor rows are kept.
const Retention = 365 * 24 * time.Hour

type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	// sqlite serialises writers; one connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		db.Close()
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	s := &Store{db: db, salt: hex.EncodeToString(salt), now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate analytics db: %w", err)
	}
	return nil
}

// HashIP returns a salted, truncated hash; the salt lives only in this process.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) RecordVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecordClick counts a click on a product's outbound link.
func (s *Store) RecordClick(ctx context.Context, product string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbound_clicks (product, clicks, last_click) VALUES (?, 1, ?)
		ON CONFLICT(product) DO UPDATE SET clicks = clicks + 1, last_click = excluded.last_click`,
		product, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

func (s *Store) RecordGalleryEvent(ctx context.Context, product, op, view string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gallery_events (product, op, view, timestamp) VALUES (?, ?, ?, ?)`,
		product, op, view, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record gallery event: %w", err)
	}
	return nil
}

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Store) SaveMessage(ctx context.Context, m Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, message, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Message, m.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// Cleanup removes visitor rows older than olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM visitors WHERE timestamp < ?`, s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
