package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testDatabaseService runs the behaviour every backend must share.
func testDatabaseService(t *testing.T, newDB func(t *testing.T) DatabaseService) {
	t.Run("DoesDatabaseExist", func(t *testing.T) {
		ds := newDB(t)
		if !ds.DoesDatabaseExist(context.Background()) {
			t.Fatalf("expected DoesDatabaseExist to return true")
		}
	})

	t.Run("CreateDatabaseIsIdempotent", func(t *testing.T) {
		ds := newDB(t)
		if err := ds.CreateDatabase(context.Background()); err != nil {
			t.Fatalf("second CreateDatabase error: %v", err)
		}
	})

	t.Run("CreateAndGetUser", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		err := ds.CreateUser(ctx, &User{Username: "alice", PasswordHash: "hash", Role: RoleAdmin})
		if err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}

		user, err := ds.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser error: %v", err)
		}
		if user.Username != "alice" || user.PasswordHash != "hash" || !user.IsAdmin() {
			t.Errorf("unexpected user %+v", user)
		}
		if user.CreatedAt.IsZero() {
			t.Errorf("expected CreatedAt to be set")
		}
	})

	t.Run("DuplicateUser", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		if err := ds.CreateUser(ctx, &User{Username: "bob", PasswordHash: "h1", Role: RoleUser}); err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
		err := ds.CreateUser(ctx, &User{Username: "bob", PasswordHash: "h2", Role: RoleAdmin})
		if !errors.Is(err, ErrUserExists) {
			t.Fatalf("expected ErrUserExists, got %v", err)
		}

		user, err := ds.GetUser(ctx, "bob")
		if err != nil {
			t.Fatalf("GetUser error: %v", err)
		}
		if user.PasswordHash != "h1" || user.Role != RoleUser {
			t.Errorf("existing user was overwritten: %+v", user)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		ds := newDB(t)
		_, err := ds.GetUser(context.Background(), "nobody")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("InsertFeedbackIsIdempotent", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()
		record := &FeedbackRecord{
			ID:           "0b6c6a9e-1111-4a51-9d1c-1f7e3f0a0001",
			Username:     "alice",
			Label:        "Tomato__Late_blight",
			FeedbackText: "correct",
			CreatedAt:    time.Unix(1700000000, 0).UTC(),
		}

		inserted, err := ds.InsertFeedback(ctx, record)
		if err != nil {
			t.Fatalf("InsertFeedback error: %v", err)
		}
		if !inserted {
			t.Fatalf("expected first insert to report inserted")
		}

		replay := *record
		replay.FeedbackText = "changed"
		inserted, err = ds.InsertFeedback(ctx, &replay)
		if err != nil {
			t.Fatalf("InsertFeedback replay error: %v", err)
		}
		if inserted {
			t.Errorf("expected replay not to insert")
		}

		has, err := ds.HasFeedback(ctx, record.ID)
		if err != nil {
			t.Fatalf("HasFeedback error: %v", err)
		}
		if !has {
			t.Errorf("expected HasFeedback to be true")
		}

		records, err := ds.ListFeedback(ctx)
		if err != nil {
			t.Fatalf("ListFeedback error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].FeedbackText != "correct" {
			t.Errorf("replay overwrote record: %+v", records[0])
		}
		if !records[0].CreatedAt.Equal(record.CreatedAt) {
			t.Errorf("expected CreatedAt %v, got %v", record.CreatedAt, records[0].CreatedAt)
		}
	})

	t.Run("ListFeedbackOrderAndFilter", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()
		base := time.Unix(1700000000, 0).UTC()

		records := []*FeedbackRecord{
			{ID: "c", Username: "alice", Label: "Tomato_healthy", FeedbackText: "third", CreatedAt: base.Add(2 * time.Minute)},
			{ID: "a", Username: "bob", Label: "Tomato__Leaf_Mold", FeedbackText: "first", FileReference: "bob/a.png", CreatedAt: base},
			{ID: "b", Username: "alice", Label: "Tomato__Target_Spot", FeedbackText: "second", CreatedAt: base.Add(time.Minute)},
		}
		for _, r := range records {
			if _, err := ds.InsertFeedback(ctx, r); err != nil {
				t.Fatalf("InsertFeedback(%s) error: %v", r.ID, err)
			}
		}

		all, err := ds.ListFeedback(ctx)
		if err != nil {
			t.Fatalf("ListFeedback error: %v", err)
		}
		var got []string
		for _, r := range all {
			got = append(got, r.FeedbackText)
		}
		if len(got) != 3 || got[0] != "first" || got[1] != "second" || got[2] != "third" {
			t.Errorf("unexpected order %v", got)
		}
		if all[0].FileReference != "bob/a.png" {
			t.Errorf("expected file reference to round-trip, got %q", all[0].FileReference)
		}

		alice, err := ds.ListFeedbackByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListFeedbackByUser error: %v", err)
		}
		if len(alice) != 2 || alice[0].ID != "b" || alice[1].ID != "c" {
			t.Errorf("unexpected records for alice: %+v", alice)
		}

		none, err := ds.ListFeedbackByUser(ctx, "carol")
		if err != nil {
			t.Fatalf("ListFeedbackByUser error: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no records for carol, got %d", len(none))
		}
	})
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	_, err := NewDatabase(context.Background(), "mongodb", "mongodb://localhost")
	if err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}
