// Package duckdb wraps DuckDB access for the peer history archive: opening
// the database file and a small struct-tag ORM.
//
// Columns are declared with `duckdb` tags. `pk` marks primary-key columns
// used as the ON CONFLICT target; `immutable` columns are written on insert
// and never overwritten by an upsert:
//
//	type peerRow struct {
//	    IP        string    `duckdb:"ip,pk"`
//	    Direction string    `duckdb:"direction,pk"`
//	    FirstSeen time.Time `duckdb:"first_seen,immutable"`
//	    LastSeen  time.Time `duckdb:"last_seen"`
//	}
//
//	table := duckdb.NewTable[peerRow](db, "peers")
//	err := table.BatchUpsert(ctx, rows)
package duckdb
