package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairlens-ai/fairlens/internal/audit"
)

// AtomicRedisStore implements Store using Redis SETNX for atomic
// first-write-wins. No race is possible even under concurrent
// submissions of the same audit key.
type AtomicRedisStore struct {
	client *redis.Client
}

// NewAtomicRedisStore creates a Redis-backed result store.
func NewAtomicRedisStore(addr, password string, db int) (*AtomicRedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &AtomicRedisStore{client: client}, nil
}

func (r *AtomicRedisStore) Get(ctx context.Context, key string) (*audit.Result, error) {
	data, err := r.client.Get(ctx, "audit:"+key).Result()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var result audit.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

func (r *AtomicRedisStore) Set(ctx context.Context, key string, result *audit.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	// SETNX with TTL: atomic first-write-wins. Losing the race to a
	// concurrent writer is not an error.
	if err := r.client.SetNX(ctx, "audit:"+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis SETNX failed: %w", err)
	}

	return nil
}

func (r *AtomicRedisStore) Close() error {
	return r.client.Close()
}

// AtomicPostgresStore implements Store using a primary-key constraint
// plus ON CONFLICT DO NOTHING for atomic first-write-wins.
//
// Schema:
//
//	CREATE TABLE audit_results (
//	  audit_key VARCHAR(64) PRIMARY KEY,
//	  result JSONB NOT NULL,
//	  expires_at TIMESTAMP NOT NULL,
//	  created_at TIMESTAMP DEFAULT NOW()
//	);
//	CREATE INDEX idx_audit_results_expires ON audit_results(expires_at);
type AtomicPostgresStore struct {
	pool *pgxpool.Pool
}

// NewAtomicPostgresStore creates a Postgres-backed result store.
func NewAtomicPostgresStore(connStr string) (*AtomicPostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &AtomicPostgresStore{pool: pool}, nil
}

func (p *AtomicPostgresStore) Get(ctx context.Context, key string) (*audit.Result, error) {
	query := `
		SELECT result
		FROM audit_results
		WHERE audit_key = $1 AND expires_at > NOW()
	`

	var resultJSON []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // not found or expired
		}
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}

	var result audit.Result
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

func (p *AtomicPostgresStore) Set(ctx context.Context, key string, result *audit.Result, ttl time.Duration) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO audit_results (audit_key, result, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (audit_key) DO NOTHING
	`

	_, err = p.pool.Exec(ctx, query, key, resultJSON, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("postgres insert failed: %w", err)
	}

	return nil
}

func (p *AtomicPostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// CleanupExpired removes expired entries. Run it periodically to keep
// the table from bloating.
func (p *AtomicPostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := p.pool.Exec(ctx, `DELETE FROM audit_results WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}

	return result.RowsAffected(), nil
}
