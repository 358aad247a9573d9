package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// OpenDB opens (creating if needed) the DuckDB database at path. An empty
// path or ":memory:" opens an in-memory database.
func OpenDB(path string) (*sql.DB, error) {
	if path != "" && path != ":memory:" {
		//nolint:gosec // G301: state directory shared with the store file.
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		path = ""
	}

	connector, err := duckdbDriver.NewConnector(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %q: %w", path, err)
	}

	return sql.OpenDB(connector), nil
}
