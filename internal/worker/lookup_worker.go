package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LookupWorker enriches freshly scanned entities with catalog product data.
// Entities created by the chain engine start out named after their barcode;
// a catalog hit replaces that placeholder.
type LookupWorker struct {
	engine service.EntityService
	lookup service.LookupService
}

func NewLookupWorker(engine service.EntityService, lookup service.LookupService) *LookupWorker {
	return &LookupWorker{engine: engine, lookup: lookup}
}

func (w *LookupWorker) Handle(ctx context.Context, payload []byte) error {
	var job service.EnrichEntityJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode enrich job: %w", err)
	}
	id, err := uuid.Parse(job.EntityID)
	if err != nil {
		return fmt.Errorf("bad entity id %q", job.EntityID)
	}

	entity, err := w.engine.Get(ctx, id)
	if err != nil {
		// A deleted entity is not a failure worth retrying.
		if service.KindOf(err) == service.KindNotFound {
			return nil
		}
		return err
	}

	barcode := entity.Barcode
	if entity.OriginBarcode != nil && *entity.OriginBarcode != "" {
		barcode = *entity.OriginBarcode
	}

	result, err := w.lookup.Lookup(ctx, barcode)
	if err != nil {
		return err
	}
	if result.Product == nil {
		log.Debug().Str("barcode", barcode).Msg("no catalog match for enrichment")
		return nil
	}

	update := dto.UpdateEntityRequest{}
	if entity.Name == entity.Barcode && result.Product.Name != "" {
		update.Name = &result.Product.Name
	}
	if entity.Description == nil && result.Product.Description != "" {
		update.Description = &result.Product.Description
	}
	fields := map[string]interface{}{}
	for k, v := range entity.CustomFields {
		fields[k] = v
	}
	if result.Product.Brand != "" {
		fields["brand"] = result.Product.Brand
	}
	if result.Product.Category != "" {
		fields["category"] = result.Product.Category
	}
	if result.Product.ImageURL != "" {
		fields["image_url"] = result.Product.ImageURL
	}
	fields["lookup_source"] = result.Product.Source
	update.CustomFields = fields

	if _, err := w.engine.Update(ctx, id, update, nil); err != nil {
		return err
	}
	log.Info().Str("entity_id", job.EntityID).Str("source", result.Product.Source).Msg("entity enriched from catalog")
	return nil
}
