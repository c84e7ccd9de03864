//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// initDB opens the database with mattn/go-sqlite3. This file is only built
// with the cgo_sqlite tag; the default build uses modernc.org/sqlite.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite3", dataSource)
}
