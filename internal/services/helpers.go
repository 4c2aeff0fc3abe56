package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// lockForUpdate acquires row locks for read-then-write sequences on the
// sibling order space. SQLite has no SELECT ... FOR UPDATE; its single-writer
// transactions already serialize the critical section, so the clause is only
// added for server databases.
//
// The returned handle is a chain clone whose statement is consumed by the
// first finisher; call lockForUpdate once per query, never reuse the result.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
