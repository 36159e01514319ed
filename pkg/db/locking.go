package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a row lock to the query on Postgres. Other dialects are returned unchanged.
func ForUpdate(tx *gorm.DB, skipLocked bool) *gorm.DB {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != DriverPostgres {
		return tx
	}
	locking := clause.Locking{Strength: "UPDATE"}
	if skipLocked {
		locking.Options = "SKIP LOCKED"
	}
	return tx.Clauses(locking)
}
