// Package registry holds the set of exportable entities, keyed by alias.
// It is populated once at startup from configuration and read-only afterward.
package registry

import (
	"fmt"
	"sort"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/cordonsoft/accountreview/internal/config"
	"github.com/cordonsoft/accountreview/internal/logger"
)

// ErrUnknownEntity is returned when an alias has no registered descriptor.
type ErrUnknownEntity struct {
	Alias string
}

func (e ErrUnknownEntity) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Alias)
}

// Descriptor binds an alias to a backing table, the column used as its
// display label when it is the target of a relation, and the set of
// fields excluded from extraction.
type Descriptor struct {
	Alias          string
	Table          string
	DisplayField   string
	ExcludedFields map[string]struct{}
}

// Registry maps aliases to entity descriptors in registration order.
type Registry struct {
	entries *orderedmap.OrderedMap[string, *Descriptor]
	byTable map[string]*Descriptor
	logger  *logger.Logger
}

// New creates an empty registry.
func New(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Registry{
		entries: orderedmap.NewOrderedMap[string, *Descriptor](),
		byTable: make(map[string]*Descriptor),
		logger:  log,
	}
}

// FromConfig builds a registry from the configured entity map. Aliases are
// registered in sorted order so ListAll is deterministic run-over-run.
func FromConfig(cfg *config.Config, log *logger.Logger) *Registry {
	r := New(log)

	aliases := cfg.ListEntities()
	sort.Strings(aliases)

	for _, alias := range aliases {
		entity := cfg.Entities[alias]
		excluded := make(map[string]struct{}, len(entity.ExcludeFields))
		for _, field := range entity.ExcludeFields {
			excluded[field] = struct{}{}
		}
		r.Register(Descriptor{
			Alias:          alias,
			Table:          entity.Table,
			DisplayField:   entity.DisplayField,
			ExcludedFields: excluded,
		})
	}

	return r
}

// Register stores a descriptor under its alias. Registering an alias twice
// overwrites the earlier binding; the overwrite is logged as a warning so a
// duplicated configuration entry does not go unnoticed.
func (r *Registry) Register(d Descriptor) {
	if d.ExcludedFields == nil {
		d.ExcludedFields = make(map[string]struct{})
	}
	if _, exists := r.entries.Get(d.Alias); exists {
		r.logger.Warnw("Entity alias re-registered, previous binding overwritten",
			"alias", d.Alias,
			"table", d.Table,
		)
	}
	r.entries.Set(d.Alias, &d)
	r.byTable[d.Table] = &d
}

// Resolve returns the descriptor registered under alias.
func (r *Registry) Resolve(alias string) (*Descriptor, error) {
	d, exists := r.entries.Get(alias)
	if !exists {
		return nil, ErrUnknownEntity{Alias: alias}
	}
	return d, nil
}

// ListAll returns all descriptors in registration order.
func (r *Registry) ListAll() []*Descriptor {
	all := make([]*Descriptor, 0, r.entries.Len())
	for el := r.entries.Front(); el != nil; el = el.Next() {
		all = append(all, el.Value)
	}
	return all
}

// ExcludedFields returns the configured exclusion set for an alias,
// or an empty set when the alias is unknown or has no exclusions.
func (r *Registry) ExcludedFields(alias string) map[string]struct{} {
	d, exists := r.entries.Get(alias)
	if !exists {
		return map[string]struct{}{}
	}
	return d.ExcludedFields
}

// DisplayField returns the display column configured for the entity backed
// by table, or "" when the table is not registered or has no display column.
// Relation reduction uses this to choose between a label and an identifier.
func (r *Registry) DisplayField(table string) string {
	d, exists := r.byTable[table]
	if !exists {
		return ""
	}
	return d.DisplayField
}
