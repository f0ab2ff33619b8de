// Package database handles database connections and schema inspection.
//
// It wraps GORM and selects the dialector from configuration: MySQL for
// production, PostgreSQL as an alternative backend and SQLite for local runs
// and tests.
//
// # Connect
//
// Connect opens the database and pings it within the configured timeout.
// SQLite connections are limited to a single open connection so an in-memory
// database stays consistent across the per-stage transactions of an import.
//
// # Schema Inspection
//
// GetTableColumns returns normalized column definitions (SHOW COLUMNS on MySQL,
// information_schema on PostgreSQL, PRAGMA table_info on SQLite). The integrity
// feature uses it to verify the forum tables before an import runs.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "posts")
package database
