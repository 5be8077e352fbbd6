package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
)

// PostgresStore persists the same encoded documents in a single jsonb table.
// Row upserts are transactional, which satisfies the atomic-flush contract
// without a temp-file dance.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const documentsTable = `
CREATE TABLE IF NOT EXISTS documents (
    name       TEXT PRIMARY KEY,
    body       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore establishes a connection pool and ensures the documents
// table exists.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if cfg.RunMigrations {
		if _, err := pool.Exec(ctx, documentsTable); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("connected to postgres document store")
	return s, nil
}

// LoadActivity reads the activity document.
func (s *PostgresStore) LoadActivity(ctx context.Context, fallbackGuild int64) (*ActivitySnapshot, error) {
	data, err := s.load(ctx, docActivity)
	if err != nil {
		return nil, err
	}
	snap, err := decodeActivity(data, fallbackGuild)
	if err != nil {
		s.logger.Warn("activity document unreadable; starting fresh", zap.Error(err))
		return NewActivitySnapshot(), nil
	}
	return snap, nil
}

// SaveActivity upserts the activity document.
func (s *PostgresStore) SaveActivity(ctx context.Context, snap *ActivitySnapshot) error {
	data, err := encodeActivity(snap)
	if err != nil {
		return err
	}
	return s.save(ctx, docActivity, data)
}

// LoadMessages reads the message-log document.
func (s *PostgresStore) LoadMessages(ctx context.Context) (MessageLog, error) {
	data, err := s.load(ctx, docMessages)
	if err != nil {
		return nil, err
	}
	log, err := decodeMessages(data)
	if err != nil {
		s.logger.Warn("message log unreadable; starting fresh", zap.Error(err))
		return make(MessageLog), nil
	}
	return log, nil
}

// SaveMessages upserts the message-log document.
func (s *PostgresStore) SaveMessages(ctx context.Context, log MessageLog) error {
	data, err := encodeMessages(log)
	if err != nil {
		return err
	}
	return s.save(ctx, docMessages, data)
}

// LoadConfig reads the config document, storing the default on first run.
func (s *PostgresStore) LoadConfig(ctx context.Context) (*Config, error) {
	data, err := s.load(ctx, docConfig)
	if err != nil {
		return nil, err
	}
	if data == nil {
		cfg := DefaultConfig()
		if err := s.SaveConfig(ctx, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		s.logger.Warn("config document unreadable; using defaults", zap.Error(err))
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// SaveConfig upserts the config document.
func (s *PostgresStore) SaveConfig(ctx context.Context, cfg *Config) error {
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	return s.save(ctx, docConfig, data)
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases pool resources.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *PostgresStore) save(ctx context.Context, name string, body []byte) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO documents (name, body, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, body)
	return err
}
