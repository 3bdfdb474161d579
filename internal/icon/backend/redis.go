package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// DefaultRedisKey is the hash holding host -> JSON Record.
const DefaultRedisKey = "linkmeta:icons"

// RedisBackend stores records as fields of one Redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// OpenRedis connects to addr and checks the connection.
func OpenRedis(ctx context.Context, addr string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseConnect, Backend: "redis"}
	}
	return NewRedisBackend(client, DefaultRedisKey), nil
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Load(ctx context.Context) (map[string]Record, failure.ClassifiedError) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, readError(r.Name(), err)
	}
	records := make(map[string]Record, len(fields))
	for host, raw := range fields {
		var record Record
		// skip fields some other writer left in a different shape
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		records[host] = record
	}
	return records, nil
}

func (r *RedisBackend) Put(ctx context.Context, host string, record Record) failure.ClassifiedError {
	raw, err := json.Marshal(record)
	if err != nil {
		return writeError(r.Name(), err)
	}
	if err := r.client.HSet(ctx, r.key, host, raw).Err(); err != nil {
		return writeError(r.Name(), err)
	}
	return nil
}

func (r *RedisBackend) Clear(ctx context.Context) failure.ClassifiedError {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return writeError(r.Name(), err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
