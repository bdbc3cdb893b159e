package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MemoryDSN selects the in-process store instead of PostgreSQL.
const MemoryDSN = "memory"

// Open connects to the database named by dsn and applies the schema.
// MemoryDSN returns an empty MemoryStore.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == MemoryDSN || dsn == "" {
		zap.L().Warn("using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	pg := NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return pg, nil
}
