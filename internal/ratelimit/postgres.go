package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const cleanupInterval = 5 * time.Minute

// PostgresStore is a CounterStore backed by a single upsert statement, so the
// increment and the read are one atomic round trip. Expired rows are removed
// by a background janitor; correctness never depends on the sweep because
// IncrementAndGet resets any row whose expiry has passed.
type PostgresStore struct {
	db     *sql.DB
	done   chan struct{}
	logger *zap.Logger
}

// NewPostgresStore wraps an open pool and starts the cleanup loop.
//
// Expected schema:
//
//	CREATE TABLE rate_counters (
//	    bucket_key TEXT PRIMARY KEY,
//	    hit_count  BIGINT NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	s := &PostgresStore{
		db:     db,
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.cleanupLoop()
	return s
}

func (s *PostgresStore) IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_counters (bucket_key, hit_count, expires_at)
		VALUES ($1, 1, now() + $2::interval)
		ON CONFLICT (bucket_key) DO UPDATE SET
			hit_count  = CASE WHEN rate_counters.expires_at < now() THEN 1
			                  ELSE rate_counters.hit_count + 1 END,
			expires_at = CASE WHEN rate_counters.expires_at < now() THEN now() + $2::interval
			                  ELSE rate_counters.expires_at END
		RETURNING hit_count`,
		key, fmt.Sprintf("%d seconds", int(ttl.Seconds())),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("IncrementAndGet: %w", err)
	}
	return count, nil
}

// Close stops the cleanup loop. The pool itself is owned by the caller.
func (s *PostgresStore) Close() {
	close(s.done)
}

func (s *PostgresStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			res, err := s.db.ExecContext(ctx, `DELETE FROM rate_counters WHERE expires_at < now()`)
			cancel()
			if err != nil {
				s.logger.Warn("rate counter cleanup failed", zap.Error(err))
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				s.logger.Debug("expired rate counters removed", zap.Int64("rows", n))
			}
		case <-s.done:
			return
		}
	}
}
