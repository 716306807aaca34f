package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
)

const redisKeyPrefix = "docparser:document:"

// RedisStore keeps each result as one JSON string. A zero TTL keeps keys forever.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
	ttl    time.Duration
	logger *slog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisStore(cfg RedisConfig, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewRedisStoreWithClient(rdb, cfg.TTL, logger)
	s.closer = rdb.Close
	return s
}

func NewRedisStoreWithClient(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func redisKey(id uuid.UUID) string { return redisKeyPrefix + id.String() }

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*document.ProcessingResult, error) {
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w: %v", id, common.ErrDatabase, err)
	}
	return decode(id, b)
}

func (s *RedisStore) Put(ctx context.Context, res *document.ProcessingResult) error {
	b, err := encode(res)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(res.DocumentID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("put document %s: %w: %v", res.DocumentID, common.ErrDatabase, err)
	}
	s.logger.Debug("store.put.ok", "document_id", res.DocumentID, "backend", "redis", "bytes", len(b))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete document %s: %w: %v", id, common.ErrDatabase, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
