// Package storage provides SQLite persistence for categories, notices,
// subscriptions and staff snapshots.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		code TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		article_id TEXT NOT NULL,
		posted_date TEXT NOT NULL,
		updated_date TEXT,
		subject TEXT NOT NULL,
		FOREIGN KEY (category) REFERENCES categories(name),
		UNIQUE(category, article_id)
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		token TEXT NOT NULL,
		category TEXT NOT NULL,
		PRIMARY KEY (token, category),
		FOREIGN KEY (category) REFERENCES categories(name)
	);

	CREATE TABLE IF NOT EXISTS staff (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dept TEXT NOT NULL,
		college TEXT NOT NULL,
		name TEXT NOT NULL,
		major TEXT,
		lab TEXT,
		phone TEXT,
		email TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_notices_identity ON notices(category, article_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_token ON subscriptions(token);
	CREATE INDEX IF NOT EXISTS idx_staff_dept ON staff(dept);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SeedCategories inserts the reference categories, skipping ones already
// present. Reference data is never mutated afterwards.
func (s *Store) SeedCategories(ctx context.Context, categories []kuring.Category) error {
	for _, c := range categories {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO categories (name, label, code) VALUES (?, ?, ?)",
			c.Name, c.Label, c.Code,
		)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

// AllCategories returns the category reference set.
func (s *Store) AllCategories(ctx context.Context) ([]kuring.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, label, code FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []kuring.Category
	for rows.Next() {
		var c kuring.Category
		if err := rows.Scan(&c.Name, &c.Label, &c.Code); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// NoticeExists reports whether a notice with this identity is persisted.
func (s *Store) NoticeExists(ctx context.Context, category, articleID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM notices WHERE category = ? AND article_id = ?",
		category, articleID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query notice existence: %w", err)
	}
	return true, nil
}

// FindNotice loads one notice by identity, or ErrNotFound.
func (s *Store) FindNotice(ctx context.Context, category, articleID string) (*kuring.Notice, error) {
	var n kuring.Notice
	var updated sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT category, article_id, posted_date, updated_date, subject FROM notices WHERE category = ? AND article_id = ?",
		category, articleID,
	).Scan(&n.Category, &n.ArticleID, &n.PostedDate, &updated, &n.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query notice: %w", err)
	}
	n.UpdatedDate = updated.String
	return &n, nil
}

// SaveNotice upserts a notice. A re-fetch of a known identity updates the
// subject and updated date; it never duplicates the row.
func (s *Store) SaveNotice(ctx context.Context, n kuring.Notice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notices (category, article_id, posted_date, updated_date, subject)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, article_id) DO UPDATE SET
			updated_date = excluded.updated_date,
			subject = excluded.subject`,
		n.Category, n.ArticleID, n.PostedDate, nullable(n.UpdatedDate), n.Subject,
	)
	if err != nil {
		return fmt.Errorf("save notice %s/%s: %w", n.Category, n.ArticleID, err)
	}
	return nil
}

// CategoriesByToken returns the category names the token subscribes to.
func (s *Store) CategoriesByToken(ctx context.Context, token string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category FROM subscriptions WHERE token = ? ORDER BY category", token)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		categories = append(categories, name)
	}
	return categories, rows.Err()
}

// SaveSubscription inserts one (token, category) row; saving an existing
// pair is a no-op.
func (s *Store) SaveSubscription(ctx context.Context, token, category string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO subscriptions (token, category) VALUES (?, ?)",
		token, category,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes one (token, category) row; deletion is
// idempotent.
func (s *Store) DeleteSubscription(ctx context.Context, token, category string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE token = ? AND category = ?",
		token, category,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ReplaceStaff swaps in a department's fresh staff snapshot atomically.
func (s *Store) ReplaceStaff(ctx context.Context, dept string, records []kuring.StaffRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM staff WHERE dept = ?", dept); err != nil {
		return fmt.Errorf("clear staff snapshot: %w", err)
	}
	for _, r := range records {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO staff (dept, college, name, major, lab, phone, email) VALUES (?, ?, ?, ?, ?, ?, ?)",
			r.Dept, r.College, r.Name, r.Major, r.Lab, r.Phone, r.Email,
		)
		if err != nil {
			return fmt.Errorf("insert staff row: %w", err)
		}
	}

	return tx.Commit()
}

// StaffByDept returns a department's current staff snapshot.
func (s *Store) StaffByDept(ctx context.Context, dept string) ([]kuring.StaffRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT dept, college, name, major, lab, phone, email FROM staff WHERE dept = ? ORDER BY name", dept)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	var records []kuring.StaffRecord
	for rows.Next() {
		var r kuring.StaffRecord
		if err := rows.Scan(&r.Dept, &r.College, &r.Name, &r.Major, &r.Lab, &r.Phone, &r.Email); err != nil {
			return nil, fmt.Errorf("scan staff row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
