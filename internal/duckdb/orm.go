package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Execer matches both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table is a typed wrapper around one DuckDB table.
type Table[T any] struct {
	db              Execer
	tableName       string
	columns         []string
	pkColumns       []string
	immutableFields map[string]bool
	fieldMap        map[string]int
}

// NewTable creates a Table[T]. T must be a struct with `duckdb` tags.
func NewTable[T any](db Execer, tableName string) *Table[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("Table generic type T must be a struct")
	}

	tbl := &Table[T]{
		db:              db,
		tableName:       tableName,
		immutableFields: make(map[string]bool),
		fieldMap:        make(map[string]int),
	}

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("duckdb")
		if tag == "" || tag == "-" {
			continue
		}

		parts := strings.Split(tag, ",")
		col := strings.TrimSpace(parts[0])
		tbl.columns = append(tbl.columns, col)
		tbl.fieldMap[col] = i

		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				tbl.pkColumns = append(tbl.pkColumns, col)
			case "immutable":
				tbl.immutableFields[col] = true
			}
		}
	}

	return tbl
}

// Columns returns the mapped column names in struct order.
func (t *Table[T]) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table[T]) isPK(col string) bool {
	for _, pk := range t.pkColumns {
		if pk == col {
			return true
		}
	}
	return false
}

// insertQuery builds INSERT ... ON CONFLICT for the table. Without primary
// keys it is a plain INSERT.
func (t *Table[T]) insertQuery() string {
	placeholders := make([]string, len(t.columns))
	updates := make([]string, 0, len(t.columns))

	for i, col := range t.columns {
		placeholders[i] = "?"
		if !t.isPK(col) && !t.immutableFields[col] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	// #nosec G201 - table and column names come from struct tags, not input.
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.tableName,
		strings.Join(t.columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if len(t.pkColumns) > 0 {
		action := "DO NOTHING"
		if len(updates) > 0 {
			action = "DO UPDATE SET " + strings.Join(updates, ", ")
		}
		query += fmt.Sprintf(" ON CONFLICT (%s) %s", strings.Join(t.pkColumns, ", "), action)
	}

	return query
}

func (t *Table[T]) values(item *T) []any {
	val := reflect.ValueOf(item).Elem()
	values := make([]any, len(t.columns))
	for i, col := range t.columns {
		values[i] = val.Field(t.fieldMap[col]).Interface()
	}
	return values
}

// BatchUpsert upserts items in a single transaction with a prepared statement.
func (t *Table[T]) BatchUpsert(ctx context.Context, items []*T) (err error) {
	if len(items) == 0 {
		return nil
	}

	var tx *sql.Tx
	switch d := t.db.(type) {
	case *sql.Tx:
		tx = d
	case *sql.DB:
		tx, err = d.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
	default:
		return fmt.Errorf("unsupported Execer type for BatchUpsert: %T", t.db)
	}

	stmt, err := tx.PrepareContext(ctx, t.insertQuery())
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err = stmt.ExecContext(ctx, t.values(item)...); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}

	if _, started := t.db.(*sql.DB); started {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	return nil
}

// ListOptions narrows List results.
type ListOptions struct {
	// Filters are "column = value" pairs joined with AND.
	Filters map[string]any
	// OrderBy is a column name, prefixed with '-' for descending order.
	OrderBy string
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// List returns rows matching opts.
func (t *Table[T]) List(ctx context.Context, opts ListOptions) ([]*T, error) {
	// #nosec G201 - identifiers are validated against the struct tags.
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns, ", "), t.tableName)
	var args []any

	if len(opts.Filters) > 0 {
		clauses := make([]string, 0, len(opts.Filters))
		for _, col := range t.columns {
			v, ok := opts.Filters[col]
			if !ok {
				continue
			}
			clauses = append(clauses, col+" = ?")
			args = append(args, v)
		}
		if len(clauses) != len(opts.Filters) {
			return nil, errors.New("filter on unknown column")
		}
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	if opts.OrderBy != "" {
		col, dir := strings.TrimPrefix(opts.OrderBy, "-"), "ASC"
		if strings.HasPrefix(opts.OrderBy, "-") {
			dir = "DESC"
		}
		if _, ok := t.fieldMap[col]; !ok {
			return nil, fmt.Errorf("cannot order by unknown column %q", col)
		}
		query += fmt.Sprintf(" ORDER BY %s %s", col, dir)
	}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*T
	for rows.Next() {
		item, err := t.scanRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *Table[T]) scanRows(rows *sql.Rows) (*T, error) {
	var item T
	val := reflect.ValueOf(&item).Elem()
	dest := make([]any, len(t.columns))

	for i, col := range t.columns {
		dest[i] = val.Field(t.fieldMap[col]).Addr().Interface()
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return &item, nil
}

// IsTransactionConflict reports whether err is a DuckDB write conflict that
// is worth retrying.
func IsTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "TransactionContext Error") ||
		strings.Contains(msg, "serialization")
}
