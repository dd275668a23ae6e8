package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

func NewRedisStorage(cfg RedisConfig, logger *zap.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return NewRedisStorageFromClient(client, cfg.Prefix, logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStorage{client: client, prefix: prefix, logger: logger}
}

func (r *RedisStorage) key(key string) string {
	return r.prefix + key
}

func (r *RedisStorage) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Storage get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewStorageError("get failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			r.logger.Error("Storage unmarshal failed", zap.String("key", key), zap.Error(err))
			return true, errors.NewStorageError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value any) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewStorageError("marshal failed", "set", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), jsonData, 0).Err(); err != nil {
		r.logger.Error("Storage set failed", zap.String("key", key), zap.Error(err))
		return errors.NewStorageError("set failed", "set", key, err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		r.logger.Error("Storage delete failed", zap.Strings("keys", keys), zap.Error(err))
		return errors.NewStorageError("delete failed", "del", fmt.Sprintf("%d keys", len(keys)), err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	r.logger.Info("Redis disconnected")
	return nil
}

func (r *RedisStorage) IsConnected(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}
