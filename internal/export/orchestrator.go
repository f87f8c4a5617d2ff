package export

import (
	"context"
	"fmt"
	"time"

	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/registry"
	"github.com/cordonsoft/accountreview/internal/store"
)

// RecordSource is the slice of the store the orchestrator and extractor
// consume: batch fetch plus association lookups.
type RecordSource interface {
	FetchAll(ctx context.Context, table, primaryKey string) ([]store.Record, error)
	RelatedFetcher
}

// Request describes one export invocation.
type Request struct {
	Entity  string // alias to export; "" exports every registered entity
	Format  Format
	Channel Channel
	Options Options
}

// ExportResult reports one entity's export outcome.
type ExportResult struct {
	Entity   string
	Table    string
	Records  int
	Warnings int
	Duration time.Duration
	Delivery *DeliveryResult
}

// Orchestrator runs the full pipeline per entity: fetch, describe, extract,
// render, deliver. Entities are processed strictly in sequence.
type Orchestrator struct {
	registry   *registry.Registry
	meta       MetaSource
	source     RecordSource
	dispatcher *Dispatcher
	logger     *logger.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(reg *registry.Registry, meta MetaSource, source RecordSource, dispatcher *Dispatcher, log *logger.Logger) (*Orchestrator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if meta == nil {
		return nil, fmt.Errorf("metadata source is nil")
	}
	if source == nil {
		return nil, fmt.Errorf("record source is nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Orchestrator{
		registry:   reg,
		meta:       meta,
		source:     source,
		dispatcher: dispatcher,
		logger:     log,
	}, nil
}

// Run exports the requested entity, or every registered entity when none is
// named. Caller-input problems (unknown entity, unsupported format or
// channel, missing recipient) are rejected before any entity is processed so
// a misconfigured run writes no partial output.
func (o *Orchestrator) Run(ctx context.Context, req Request) ([]ExportResult, error) {
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return nil, err
	}
	if _, err := ParseChannel(string(req.Channel)); err != nil {
		return nil, err
	}
	if req.Channel == ChannelMail && req.Options.Recipient == "" {
		return nil, ErrRecipientRequired
	}

	var descriptors []*registry.Descriptor
	if req.Entity != "" {
		d, err := o.registry.Resolve(req.Entity)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	} else {
		descriptors = o.registry.ListAll()
		if len(descriptors) == 0 {
			return nil, fmt.Errorf("no exportable entities registered")
		}
	}

	extractor := NewExtractor(o.source, o.registry, o.meta, o.logger)

	results := make([]ExportResult, 0, len(descriptors))
	for _, d := range descriptors {
		result, err := o.exportEntity(ctx, extractor, d, req)
		if err != nil {
			return results, fmt.Errorf("export of entity %q failed: %w", d.Alias, err)
		}
		results = append(results, *result)
	}

	return results, nil
}

// exportEntity runs the pipeline for one entity. A zero-record entity still
// produces an empty-but-valid document in the requested format.
func (o *Orchestrator) exportEntity(ctx context.Context, extractor *Extractor, d *registry.Descriptor, req Request) (*ExportResult, error) {
	start := time.Now()
	log := o.logger.WithEntity(d.Alias)

	meta, err := o.meta.Describe(ctx, d.Table)
	if err != nil {
		return nil, err
	}

	records, err := o.source.FetchAll(ctx, d.Table, meta.PrimaryKey)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		log.Warnw("No records found for entity", "table", d.Table)
	} else {
		log.Infow("Extracting records",
			"table", d.Table,
			"records", len(records),
			"excluded_fields", len(d.ExcludedFields),
		)
	}

	batch := make(Batch, 0, len(records))
	warnings := 0
	for _, record := range records {
		flat, recWarnings, err := extractor.Extract(ctx, record, meta, d.ExcludedFields)
		if err != nil {
			return nil, err
		}
		warnings += len(recWarnings)
		batch = append(batch, flat)
	}

	content, err := Render(batch, req.Format)
	if err != nil {
		return nil, err
	}

	delivery, err := o.dispatcher.Deliver(ctx, content, req.Format, d.Alias, req.Channel, req.Options)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		Entity:   d.Alias,
		Table:    d.Table,
		Records:  len(batch),
		Warnings: warnings,
		Duration: time.Since(start),
		Delivery: delivery,
	}

	log.Infow("Entity export complete",
		"records", result.Records,
		"warnings", result.Warnings,
		"channel", delivery.Channel,
		"location", delivery.Location,
		"duration", result.Duration,
	)
	return result, nil
}
