// Package schema introspects entity metadata from the MySQL
// information_schema so extraction can work against any registered table
// without compile-time knowledge of its shape.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cordonsoft/accountreview/internal/logger"
)

// ErrUnknownType is returned when the store has no schema for a table.
type ErrUnknownType struct {
	Table string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("no schema found for table %q", e.Table)
}

// Cardinality describes whether an association targets one or many records.
type Cardinality int

const (
	ToOne Cardinality = iota
	ToMany
)

func (c Cardinality) String() string {
	if c == ToMany {
		return "to-many"
	}
	return "to-one"
}

// Association describes one relation of an entity.
//
// For ToOne, LocalColumn is the foreign key column on the owning table and
// TargetColumn the referenced column on TargetTable. For ToMany, ForeignKey
// is the column on TargetTable referencing the owning table's primary key.
type Association struct {
	Name         string
	Cardinality  Cardinality
	TargetTable  string
	LocalColumn  string
	TargetColumn string
	ForeignKey   string
}

// TypeMetadata holds the introspected shape of one entity table.
// Field and association ordering follows the schema's declaration order
// (ORDINAL_POSITION); this ordering becomes the key order of extracted
// records and the column order of tabular output.
type TypeMetadata struct {
	Table        string
	PrimaryKey   string
	ScalarFields []string
	Associations []Association
}

// Introspector reads table metadata from information_schema. Results are
// cached per instance so repeated Describe calls within one export run
// return identical metadata.
type Introspector struct {
	db       *sql.DB
	database string
	logger   *logger.Logger
	cache    map[string]*TypeMetadata
}

// NewIntrospector creates an introspector bound to one database schema.
func NewIntrospector(db *sql.DB, database string, log *logger.Logger) (*Introspector, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Introspector{
		db:       db,
		database: database,
		logger:   log,
		cache:    make(map[string]*TypeMetadata),
	}, nil
}

// Describe returns the scalar fields and associations of a table.
// Foreign key columns that back a to-one association are surfaced as the
// association, not as scalar fields.
func (in *Introspector) Describe(ctx context.Context, table string) (*TypeMetadata, error) {
	if meta, ok := in.cache[table]; ok {
		return meta, nil
	}

	columns, primaryKey, err := in.queryColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, ErrUnknownType{Table: table}
	}

	toOne, err := in.queryToOne(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query outgoing foreign keys for %q: %w", table, err)
	}
	toMany, err := in.queryToMany(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming foreign keys for %q: %w", table, err)
	}

	fkColumns := make(map[string]bool, len(toOne))
	for _, assoc := range toOne {
		fkColumns[assoc.LocalColumn] = true
	}

	meta := &TypeMetadata{
		Table:      table,
		PrimaryKey: primaryKey,
	}
	for _, col := range columns {
		if !fkColumns[col] {
			meta.ScalarFields = append(meta.ScalarFields, col)
		}
	}
	meta.Associations = append(meta.Associations, toOne...)
	meta.Associations = append(meta.Associations, toMany...)

	in.logger.Debugw("Described entity table",
		"table", table,
		"scalar_fields", len(meta.ScalarFields),
		"associations", len(meta.Associations),
	)

	in.cache[table] = meta
	return meta, nil
}

// queryColumns returns column names in declaration order plus the primary key column.
func (in *Introspector) queryColumns(ctx context.Context, table string) ([]string, string, error) {
	query := `SELECT COLUMN_NAME, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	rows, err := in.db.QueryContext(ctx, query, in.database, table)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query columns for %q: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	var primaryKey string
	for rows.Next() {
		var name, key string
		if err := rows.Scan(&name, &key); err != nil {
			return nil, "", fmt.Errorf("failed to scan column row: %w", err)
		}
		columns = append(columns, name)
		if key == "PRI" && primaryKey == "" {
			primaryKey = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to iterate column rows: %w", err)
	}

	// Fall back to the first column when no primary key is declared.
	if primaryKey == "" && len(columns) > 0 {
		primaryKey = columns[0]
	}

	return columns, primaryKey, nil
}

// queryToOne returns associations backed by foreign keys on the table itself.
func (in *Introspector) queryToOne(ctx context.Context, table string) ([]Association, error) {
	query := `SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY ORDINAL_POSITION`

	rows, err := in.db.QueryContext(ctx, query, in.database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assocs []Association
	for rows.Next() {
		var column, targetTable, targetColumn string
		if err := rows.Scan(&column, &targetTable, &targetColumn); err != nil {
			return nil, err
		}
		assocs = append(assocs, Association{
			Name:         associationName(column),
			Cardinality:  ToOne,
			TargetTable:  targetTable,
			LocalColumn:  column,
			TargetColumn: targetColumn,
		})
	}
	return assocs, rows.Err()
}

// queryToMany returns associations backed by foreign keys on other tables
// referencing this one.
func (in *Introspector) queryToMany(ctx context.Context, table string) ([]Association, error) {
	query := `SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
		AND REFERENCED_TABLE_NAME = ?
		ORDER BY TABLE_NAME, COLUMN_NAME`

	rows, err := in.db.QueryContext(ctx, query, in.database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assocs []Association
	for rows.Next() {
		var childTable, foreignKey, referencedColumn string
		if err := rows.Scan(&childTable, &foreignKey, &referencedColumn); err != nil {
			return nil, err
		}
		assocs = append(assocs, Association{
			Name:         childTable,
			Cardinality:  ToMany,
			TargetTable:  childTable,
			TargetColumn: referencedColumn,
			ForeignKey:   foreignKey,
		})
	}
	return assocs, rows.Err()
}

// associationName derives the exported key for a to-one association from its
// foreign key column: "company_id" becomes "company".
func associationName(column string) string {
	if name := strings.TrimSuffix(column, "_id"); name != "" && name != column {
		return name
	}
	return column
}
