package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-auth-gate/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT UNIQUE NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS otp_codes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	code       TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	used       INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS otp_codes_user_code ON otp_codes (user_id, code);

CREATE TABLE IF NOT EXISTS allowed_emails (
	id         TEXT PRIMARY KEY,
	pattern    TEXT UNIQUE NOT NULL,
	created_at INTEGER NOT NULL
);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements the identity store over SQLite. It doubles as the
// ephemeral fallback when the primary backend is unavailable at startup.
type Store struct {
	db *sql.DB
}

// Open opens a file-backed store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(dsn)
}

// OpenMemory opens a process-local store. Contents are lost on exit.
func OpenMemory() (*Store, error) {
	return open(":memory:?_pragma=foreign_keys(1)")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every ":memory:" connection is a separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertUser inserts u unless a user with the same email exists, and returns
// the stored row either way.
func (s *Store) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	var (
		out       domain.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET email = excluded.email
		RETURNING id, email, created_at`,
		u.UserID, u.Email, toMillis(u.CreatedAt),
	).Scan(&out.UserID, &out.Email, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	out.CreatedAt = fromMillis(createdAt)
	return &out, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = ?`, userID,
	).Scan(&u.UserID, &u.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func (s *Store) InsertOTP(ctx context.Context, c *domain.OTPCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otp_codes (id, user_id, code, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.OTPID, c.UserID, c.Code, toMillis(c.ExpiresAt), c.Used, toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}
	return nil
}

// RevokeOTPs marks every unused code of the user as used.
func (s *Store) RevokeOTPs(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE otp_codes SET used = 1 WHERE user_id = ? AND used = 0`, userID)
	if err != nil {
		return fmt.Errorf("revoke otps: %w", err)
	}
	return nil
}

// ConsumeOTP flips one matching unused, unexpired code to used in a single
// statement and reports whether a row changed.
func (s *Store) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE otp_codes SET used = 1
		WHERE used = 0 AND id = (
			SELECT id FROM otp_codes
			WHERE user_id = ? AND code = ? AND used = 0 AND expires_at > ?
			LIMIT 1
		)`,
		userID, code, toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListAllowedPatterns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pattern FROM allowed_emails ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list allowed patterns: %w", err)
	}
	defer rows.Close()
	var patterns []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan allowed pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// AddAllowedPattern is a no-op when the pattern already exists.
func (s *Store) AddAllowedPattern(ctx context.Context, p *domain.AllowedEmailPattern) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO allowed_emails (id, pattern, created_at) VALUES (?, ?, ?)`,
		p.PatternID, p.Pattern, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("add allowed pattern: %w", err)
	}
	return nil
}
