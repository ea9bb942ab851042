package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IssueLocks serializes card issuance per student and idempotency key
// across every API replica sharing the database.
type IssueLocks struct {
	pool *pgxpool.Pool
}

func NewIssueLocks(pool *pgxpool.Pool) *IssueLocks {
	return &IssueLocks{pool: pool}
}

// Lock blocks until the (studentID, key) lock is held or ctx is done. The
// lock is a transaction-scoped advisory lock, so unlock only rolls the
// transaction back and a dropped connection releases it too.
func (l *IssueLocks) Lock(ctx context.Context, studentID, key string) (func(), error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lock tx: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockName(studentID, key)); err != nil {
		_ = tx.Rollback(context.Background())
		return nil, fmt.Errorf("acquire issue lock: %w", err)
	}
	return func() { _ = tx.Rollback(context.Background()) }, nil
}

// lockName length-prefixes the student ID so no two pairs share a name.
func lockName(studentID, key string) string {
	return fmt.Sprintf("issue:%d:%s:%s", len(studentID), studentID, key)
}
