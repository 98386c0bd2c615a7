package access

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"repurposer/internal/models"
)

// RedisStore keeps the ledger in one hash, field = token, value = JSON record.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]models.TokenRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
	}

	records := make(map[string]models.TokenRecord, len(values))
	for token, raw := range values {
		var record models.TokenRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode token %s: %w", token, err)
		}
		records[token] = record
	}
	return records, nil
}

func (s *RedisStore) Save(ctx context.Context, records map[string]models.TokenRecord) error {
	fields := make(map[string]any, len(records))
	for token, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode token %s: %w", token, err)
		}
		fields[token] = string(raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", s.key, err)
	}
	return nil
}
