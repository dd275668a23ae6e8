package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS dashboard_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStorage persists keys in a single JSONB table.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func NewPostgresStorage(cfg PostgresConfig, logger *zap.Logger) (*PostgresStorage, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &PostgresStorage{db: db, logger: logger}, nil
}

func (p *PostgresStorage) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM dashboard_kv WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		p.logger.Error("Storage get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewStorageError("get failed", "get", key, err)
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return true, errors.NewStorageError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewStorageError("marshal failed", "set", key, err)
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO dashboard_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, data)
	if err != nil {
		p.logger.Error("Storage set failed", zap.String("key", key), zap.Error(err))
		return errors.NewStorageError("set failed", "set", key, err)
	}
	return nil
}

func (p *PostgresStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM dashboard_kv WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		p.logger.Error("Storage delete failed", zap.Strings("keys", keys), zap.Error(err))
		return errors.NewStorageError("delete failed", "del", fmt.Sprintf("%d keys", len(keys)), err)
	}
	return nil
}

func (p *PostgresStorage) IsConnected(ctx context.Context) bool {
	return p.db.PingContext(ctx) == nil
}

func (p *PostgresStorage) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
