package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "portal:session:"

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis connects using a redis:// URL and checks the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return errors.Wrap(r.rdb.Set(ctx, redisPrefix+s.ID, b, ttl).Err(), "redis set")
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	b, err := r.rdb.Get(ctx, redisPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.rdb.Del(ctx, redisPrefix+id).Err(), "redis del")
}
