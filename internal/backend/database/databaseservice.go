package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// DatabaseService is the durable store for user accounts and feedback.
type DatabaseService interface {
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist(ctx context.Context) bool
	Close() error

	// CreateUser fails with ErrUserExists when the username is taken.
	CreateUser(ctx context.Context, user *User) error
	// GetUser fails with ErrNotFound for unknown usernames.
	GetUser(ctx context.Context, username string) (*User, error)

	// InsertFeedback stores record unless a record with the same ID exists.
	// It reports whether the record was newly inserted, so replays are safe.
	InsertFeedback(ctx context.Context, record *FeedbackRecord) (bool, error)
	HasFeedback(ctx context.Context, id string) (bool, error)
	// ListFeedback returns all records, oldest first.
	ListFeedback(ctx context.Context) ([]*FeedbackRecord, error)
	ListFeedbackByUser(ctx context.Context, username string) ([]*FeedbackRecord, error)
}
