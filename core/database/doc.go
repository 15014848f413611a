// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL connections from the
// application's configuration. The sqlite driver is available for local
// development and tests; ":memory:" databases are pinned to one connection.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table on either driver, and
// MissingColumns compares a set of tables against the columns the service
// needs. The readiness probe uses it to detect an unmigrated schema.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, models.RequiredColumns())
package database
