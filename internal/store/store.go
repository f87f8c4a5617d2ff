// Package store fetches entity rows from the source MySQL database and
// exposes them as field-keyed records. Table and column names are validated
// before they are interpolated into any query.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/sqlutil"
)

// Record is one fetched row. Values are looked up by field name; a missing
// field is reported through the second return value, never as an error.
type Record struct {
	fields map[string]any
}

// NewRecord builds a record from a field map. Exposed for tests.
func NewRecord(fields map[string]any) Record {
	return Record{fields: fields}
}

// Get returns the value of a field and whether the record carries it.
func (r Record) Get(field string) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Fields returns the number of fields the record carries.
func (r Record) Fields() int {
	return len(r.fields)
}

// Store reads entity rows from the source database.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// New creates a store over the given connection.
func New(db *sql.DB, log *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Store{db: db, logger: log}, nil
}

// FetchAll returns every row of a table ordered by its primary key ascending.
func (s *Store) FetchAll(ctx context.Context, table, primaryKey string) ([]Record, error) {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}
	quotedPK, err := sqlutil.QuoteIdentifierSafe(primaryKey)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s ASC", quotedTable, quotedPK)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows from %q: %w", table, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// FetchRelatedOne returns the single row of table whose column equals value,
// or nil when no such row exists.
func (s *Store) FetchRelatedOne(ctx context.Context, table, column string, value any) (*Record, error) {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}
	quotedColumn, err := sqlutil.QuoteIdentifierSafe(column)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", quotedTable, quotedColumn)

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related row from %q: %w", table, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// FetchRelatedMany returns the rows of table whose foreign key column equals
// value, ordered by that column's table primary key when orderBy is set.
func (s *Store) FetchRelatedMany(ctx context.Context, table, column string, value any, orderBy string) ([]Record, error) {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}
	quotedColumn, err := sqlutil.QuoteIdentifierSafe(column)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", quotedTable, quotedColumn)
	if orderBy != "" {
		quotedOrderBy, err := sqlutil.QuoteIdentifierSafe(orderBy)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" ORDER BY %s ASC", quotedOrderBy)
	}

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related rows from %q: %w", table, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecords scans all rows into field-keyed records. Byte slices are
// normalized to strings since the MySQL driver returns text columns as []byte.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		fields := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				fields[col] = string(b)
			} else {
				fields[col] = values[i]
			}
		}
		records = append(records, Record{fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}
