package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "agroguard:"

// RedisDatabase keeps users and feedback records as JSON documents. Feedback
// ids are indexed in sorted sets scored by creation time.
type RedisDatabase struct {
	client *redis.Client
}

// NewRedisDatabase connects using a redis:// URL.
func NewRedisDatabase(connectionString string) (DatabaseService, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return &RedisDatabase{client: redis.NewClient(opts)}, nil
}

func userKey(username string) string {
	return keyPrefix + "user:" + username
}

func feedbackKey(id string) string {
	return keyPrefix + "feedback:" + id
}

func feedbackIndexKey() string {
	return keyPrefix + "feedback"
}

func userFeedbackIndexKey(username string) string {
	return keyPrefix + "feedback:user:" + username
}

// CreateDatabase only verifies connectivity; redis has no schema.
func (r *RedisDatabase) CreateDatabase(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDatabase) DoesDatabaseExist(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) CreateUser(ctx context.Context, user *User) error {
	exists, err := r.client.Exists(ctx, userKey(user.Username)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrUserExists, user.Username)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	created, err := r.client.SetNX(ctx, userKey(user.Username), doc, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrUserExists, user.Username)
	}
	return nil
}

func (r *RedisDatabase) GetUser(ctx context.Context, username string) (*User, error) {
	doc, err := r.client.Get(ctx, userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return nil, err
	}
	var user User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("corrupt user document %s: %w", username, err)
	}
	return &user, nil
}

func (r *RedisDatabase) InsertFeedback(ctx context.Context, record *FeedbackRecord) (bool, error) {
	doc, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	created, err := r.client.SetNX(ctx, feedbackKey(record.ID), doc, 0).Result()
	if err != nil {
		return false, err
	}

	// Index writes are idempotent, so they are repeated on replays to heal an
	// index left behind by an interrupted insert.
	score := float64(record.CreatedAt.UnixNano())
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, feedbackIndexKey(), redis.Z{Score: score, Member: record.ID})
	pipe.ZAdd(ctx, userFeedbackIndexKey(record.Username), redis.Z{Score: score, Member: record.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return created, err
	}
	return created, nil
}

func (r *RedisDatabase) HasFeedback(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, feedbackKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisDatabase) ListFeedback(ctx context.Context) ([]*FeedbackRecord, error) {
	return r.listFromIndex(ctx, feedbackIndexKey())
}

func (r *RedisDatabase) ListFeedbackByUser(ctx context.Context, username string) ([]*FeedbackRecord, error) {
	return r.listFromIndex(ctx, userFeedbackIndexKey(username))
}

func (r *RedisDatabase) listFromIndex(ctx context.Context, index string) ([]*FeedbackRecord, error) {
	ids, err := r.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = feedbackKey(id)
	}
	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*FeedbackRecord, 0, len(docs))
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			// indexed but document missing
			continue
		}
		var record FeedbackRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("corrupt feedback document %s: %w", ids[i], err)
		}
		records = append(records, &record)
	}
	return records, nil
}
