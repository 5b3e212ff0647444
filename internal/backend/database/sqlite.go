package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across the pool
	// and serialises writers the way SQLite wants them anyway.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		username      TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS feedback (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL,
		label          TEXT NOT NULL,
		feedback_text  TEXT NOT NULL,
		file_reference TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_username ON feedback(username);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist(ctx context.Context) bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	return s.db.PingContext(ctx) == nil
}

func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *User) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", user.Username).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, user.Username)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.PasswordHash, user.Role, user.CreatedAt.UnixNano())
	if isConstraintViolation(err) {
		// lost a race with a concurrent registration after the check above
		return fmt.Errorf("%w: %s", ErrUserExists, user.Username)
	}
	return err
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func (s *SQLiteDatabase) GetUser(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT username, password_hash, role, created_at FROM users WHERE username = ?", username)
	var user User
	var createdAt int64
	if err := row.Scan(&user.Username, &user.PasswordHash, &user.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func (s *SQLiteDatabase) InsertFeedback(ctx context.Context, record *FeedbackRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO feedback (id, username, label, feedback_text, file_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		record.ID, record.Username, record.Label, record.FeedbackText, record.FileReference, record.CreatedAt.UnixNano())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteDatabase) HasFeedback(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback WHERE id = ?", id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteDatabase) ListFeedback(ctx context.Context) ([]*FeedbackRecord, error) {
	return s.queryFeedback(ctx, `SELECT id, username, label, feedback_text, file_reference, created_at
		FROM feedback ORDER BY created_at ASC, id ASC`)
}

func (s *SQLiteDatabase) ListFeedbackByUser(ctx context.Context, username string) ([]*FeedbackRecord, error) {
	return s.queryFeedback(ctx, `SELECT id, username, label, feedback_text, file_reference, created_at
		FROM feedback WHERE username = ? ORDER BY created_at ASC, id ASC`, username)
}

func (s *SQLiteDatabase) queryFeedback(ctx context.Context, query string, args ...any) ([]*FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var records []*FeedbackRecord
	for rows.Next() {
		var r FeedbackRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Username, &r.Label, &r.FeedbackText, &r.FileReference, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, &r)
	}
	return records, rows.Err()
}
