// Package export implements the record flattening, serialization and
// delivery pipeline for the account review exporter.
package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/schema"
	"github.com/cordonsoft/accountreview/internal/store"
)

// RelatedFetcher is the slice of the store the extractor needs to resolve
// association values.
type RelatedFetcher interface {
	FetchRelatedOne(ctx context.Context, table, column string, value any) (*store.Record, error)
	FetchRelatedMany(ctx context.Context, table, column string, value any, orderBy string) ([]store.Record, error)
}

// DisplayResolver maps a relation target table to the column used as its
// human-readable label, or "" when the target has none.
type DisplayResolver interface {
	DisplayField(table string) string
}

// MetaSource resolves target table metadata for relation reduction.
type MetaSource interface {
	Describe(ctx context.Context, table string) (*schema.TypeMetadata, error)
}

// reducer turns a related record into its display string or identifier.
// It is resolved once per target table, not per instance.
type reducer struct {
	displayField string
	identifier   string
}

// reduce returns the related record's display string when the target exposes
// one, its identifier otherwise. The second return value is false when the
// record yields neither.
func (r *reducer) reduce(rec store.Record) (string, bool) {
	if r.displayField != "" {
		if v, ok := rec.Get(r.displayField); ok && v != nil {
			return stringifyScalar(v), true
		}
	}
	if v, ok := rec.Get(r.identifier); ok && v != nil {
		return stringifyScalar(v), true
	}
	return "", false
}

// Extractor flattens one record at a time into a FlatRecord, applying field
// exclusions, date normalization and relation reduction. Per-field and
// per-association failures are absorbed as warnings; one bad association
// never discards the rest of the record.
type Extractor struct {
	fetcher  RelatedFetcher
	display  DisplayResolver
	meta     MetaSource
	logger   *logger.Logger
	reducers map[string]*reducer
}

// NewExtractor creates an extractor.
func NewExtractor(fetcher RelatedFetcher, display DisplayResolver, meta MetaSource, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Extractor{
		fetcher:  fetcher,
		display:  display,
		meta:     meta,
		logger:   log,
		reducers: make(map[string]*reducer),
	}
}

// Extract flattens a record according to its type metadata. Scalar fields
// come first in declaration order, then associations; excluded names are
// skipped. The returned warnings describe every field or association that
// was omitted for a non-fatal reason.
//
// Extract fails hard only when the record does not match the supplied
// metadata at all (missing primary key accessor); that is a programming
// contract violation, not an expected runtime case.
func (e *Extractor) Extract(ctx context.Context, rec store.Record, meta *schema.TypeMetadata, excluded map[string]struct{}) (*FlatRecord, []string, error) {
	pkValue, ok := rec.Get(meta.PrimaryKey)
	if !ok {
		return nil, nil, fmt.Errorf("record does not match metadata for table %q: no %q accessor", meta.Table, meta.PrimaryKey)
	}

	flat := NewFlatRecord()
	var warnings []string

	for _, field := range meta.ScalarFields {
		if _, skip := excluded[field]; skip {
			continue
		}
		value, ok := rec.Get(field)
		if !ok {
			// Accessors are optional per record shape.
			continue
		}
		flat.Set(field, normalizeScalar(value))
	}

	for _, assoc := range meta.Associations {
		if _, skip := excluded[assoc.Name]; skip {
			continue
		}
		if assoc.Cardinality == schema.ToOne {
			if _, skip := excluded[assoc.LocalColumn]; skip {
				continue
			}
		}

		warning := e.extractAssociation(ctx, rec, pkValue, assoc, flat)
		if warning != "" {
			warnings = append(warnings, warning)
			e.logger.Warnw("Association omitted from extraction",
				"table", meta.Table,
				"association", assoc.Name,
				"reason", warning,
			)
		}
	}

	return flat, warnings, nil
}

// extractAssociation resolves one association into flat. It returns the
// warning text when the association is omitted, "" on success.
func (e *Extractor) extractAssociation(ctx context.Context, rec store.Record, pkValue any, assoc schema.Association, flat *FlatRecord) string {
	red, err := e.reducerFor(ctx, assoc.TargetTable)
	if err != nil {
		return fmt.Sprintf("no metadata for target table %q: %v", assoc.TargetTable, err)
	}

	switch assoc.Cardinality {
	case schema.ToOne:
		fk, ok := rec.Get(assoc.LocalColumn)
		if !ok {
			return fmt.Sprintf("association %q has no accessor %q", assoc.Name, assoc.LocalColumn)
		}
		if fk == nil {
			return fmt.Sprintf("association %q is null", assoc.Name)
		}

		related, err := e.fetcher.FetchRelatedOne(ctx, assoc.TargetTable, assoc.TargetColumn, fk)
		if err != nil {
			return fmt.Sprintf("failed to fetch association %q: %v", assoc.Name, err)
		}
		if related == nil {
			return fmt.Sprintf("association %q references a missing record", assoc.Name)
		}

		value, ok := red.reduce(*related)
		if !ok {
			return fmt.Sprintf("association %q target yields neither display string nor identifier", assoc.Name)
		}
		flat.Set(assoc.Name, value)
		return ""

	case schema.ToMany:
		related, err := e.fetcher.FetchRelatedMany(ctx, assoc.TargetTable, assoc.ForeignKey, pkValue, red.identifier)
		if err != nil {
			return fmt.Sprintf("failed to fetch association %q: %v", assoc.Name, err)
		}
		if len(related) == 0 {
			return fmt.Sprintf("association %q is empty", assoc.Name)
		}

		identifiers := make([]string, 0, len(related))
		for _, member := range related {
			value, ok := red.reduce(member)
			if !ok {
				// Members yielding neither display nor identifier are dropped.
				continue
			}
			identifiers = append(identifiers, value)
		}
		if len(identifiers) == 0 {
			return fmt.Sprintf("association %q has no reducible members", assoc.Name)
		}
		flat.Set(assoc.Name, identifiers)
		return ""

	default:
		return fmt.Sprintf("association %q has unknown cardinality", assoc.Name)
	}
}

// reducerFor resolves the display/identifier reduction for a target table,
// once per table per extractor.
func (e *Extractor) reducerFor(ctx context.Context, table string) (*reducer, error) {
	if red, ok := e.reducers[table]; ok {
		return red, nil
	}

	targetMeta, err := e.meta.Describe(ctx, table)
	if err != nil {
		return nil, err
	}

	red := &reducer{
		displayField: e.display.DisplayField(table),
		identifier:   targetMeta.PrimaryKey,
	}
	e.reducers[table] = red
	return red, nil
}

// timeLayout is the fixed textual form for temporal values. No timezone
// conversion is applied; values render in the representation the store
// returned them in.
const timeLayout = "2006-01-02 15:04:05"

// normalizeScalar prepares a raw store value for serialization.
func normalizeScalar(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(timeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(timeLayout)
	case []byte:
		return string(v)
	default:
		return value
	}
}

// stringifyScalar renders a value as the string used for display labels and
// identifiers in relation reduction.
func stringifyScalar(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(timeLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}
