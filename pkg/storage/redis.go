package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each cursor in a hash with height and ordinal fields.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr. The final key is prefix + listener key;
// prefix defaults to "burrow:cursor:".
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisStoreWithClient(rdb, prefix), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "burrow:cursor:"
	}
	return &RedisStore{client: rdb, prefix: prefix}
}

func (r *RedisStore) Load(ctx context.Context, key string) (Cursor, bool, error) {
	vals, err := r.client.HGetAll(ctx, r.prefix+key).Result()
	if err != nil {
		return Cursor{}, false, err
	}
	if len(vals) == 0 {
		return Cursor{}, false, nil
	}
	var cur Cursor
	if cur.Height, err = strconv.ParseUint(vals["height"], 10, 64); err != nil {
		return Cursor{}, false, fmt.Errorf("cursor %s: bad height: %w", key, err)
	}
	if s, ok := vals["ordinal"]; ok {
		if cur.Ordinal, err = strconv.ParseUint(s, 10, 64); err != nil {
			return Cursor{}, false, fmt.Errorf("cursor %s: bad ordinal: %w", key, err)
		}
	}
	return cur, true, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, cur Cursor) error {
	return r.client.HSet(ctx, r.prefix+key, "height", cur.Height, "ordinal", cur.Ordinal).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
