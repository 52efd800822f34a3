package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// All cache keys live under the paperflow: namespace so a shared Redis can
// be flushed per application (SCAN paperflow:*) without touching neighbors.
const (
	UserKeyPrefix     = "paperflow:user:%d"
	DocumentKeyPrefix = "paperflow:document:%d"
	MentorsKeyPrefix  = "paperflow:mentors:%s"
)

const (
	UserTTL     = 5 * time.Minute
	DocumentTTL = 2 * time.Minute
	MentorsTTL  = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func DocumentKey(documentID uint) string {
	return fmt.Sprintf(DocumentKeyPrefix, documentID)
}

func MentorsKey(department string) string {
	return fmt.Sprintf(MentorsKeyPrefix, department)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateDocument(ctx context.Context, documentID uint) {
	Invalidate(ctx, DocumentKey(documentID))
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
// Cache failures degrade to the fetch path, never to an error.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	// Fetch from source (DB)
	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}
