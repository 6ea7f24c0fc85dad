package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var csvHeader = []string{
	"barcode", "origin_barcode", "name", "description", "entity_type",
	"quantity", "price", "warehouse_id", "parent_id", "status",
}

// ExportService produces and ingests CSV snapshots of the entity store, and
// hands email deliveries off to the background queue.
type ExportService interface {
	ExportCSV(ctx context.Context, w io.Writer, entityType string) (int, error)
	ImportCSV(ctx context.Context, r io.Reader, userID *uuid.UUID) (*dto.CSVImportResponse, error)
	EnqueueEmailExport(ctx context.Context, req dto.EmailExportRequest) error
	ExportFilename(entityType string) string
}

type exportService struct {
	entities repository.EntityRepository
	engine   EntityService
	queue    Queue
}

func NewExportService(entities repository.EntityRepository, engine EntityService, queue Queue) ExportService {
	return &exportService{entities: entities, engine: engine, queue: queue}
}

// ExportCSV streams all entities (optionally one type) as CSV and returns the
// row count.
func (s *exportService) ExportCSV(ctx context.Context, w io.Writer, entityType string) (int, error) {
	entities, err := s.entities.ListAll(ctx, entityType)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for i := range entities {
		e := &entities[i]
		price := ""
		if e.Price != nil {
			price = e.Price.StringFixed(2)
		}
		row := []string{
			e.Barcode,
			deref(e.OriginBarcode),
			e.Name,
			deref(e.Description),
			e.EntityType,
			strconv.Itoa(e.Quantity),
			price,
			uuidStr(e.WarehouseID),
			uuidStr(e.ParentID),
			deref(e.Status),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(entities), cw.Error()
}

// ImportCSV upserts entities by barcode: known barcodes are updated, new ones
// created through the operations engine so every row lands in history. Bad
// rows are collected, not fatal.
func (s *exportService) ImportCSV(ctx context.Context, r io.Reader, userID *uuid.UUID) (*dto.CSVImportResponse, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, ErrValidation("empty or unreadable CSV")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["barcode"]; !ok {
		return nil, ErrValidation("CSV is missing the barcode column")
	}

	result := &dto.CSVImportResponse{Errors: []string{}}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if err := s.importRow(ctx, col, record, userID, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
		}
	}

	log.Info().Int("created", result.Created).Int("updated", result.Updated).
		Int("errors", len(result.Errors)).Msg("csv import finished")
	return result, nil
}

func (s *exportService) importRow(ctx context.Context, col map[string]int, record []string, userID *uuid.UUID, result *dto.CSVImportResponse) error {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	barcode := field("barcode")
	if barcode == "" {
		return fmt.Errorf("missing barcode")
	}

	var price *decimal.Decimal
	if raw := field("price"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("bad price %q", raw)
		}
		price = &p
	}
	var quantity *int
	if raw := field("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 0 {
			return fmt.Errorf("bad quantity %q", raw)
		}
		quantity = &q
	}

	existing, err := s.entities.FindByBarcode(ctx, barcode)
	switch {
	case err == nil:
		update := dto.UpdateEntityRequest{Price: price, Quantity: quantity}
		if name := field("name"); name != "" {
			update.Name = &name
		}
		if descr := field("description"); descr != "" {
			update.Description = &descr
		}
		if status := field("status"); status != "" {
			update.Status = &status
		}
		if _, err := s.engine.Update(ctx, existing.ID, update, userID); err != nil {
			return err
		}
		result.Updated++
		return nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		name := field("name")
		if name == "" {
			name = barcode
		}
		entityType := field("entity_type")
		if entityType == "" {
			entityType = model.TypeItem
		}
		create := dto.CreateEntityRequest{
			Barcode:    barcode,
			Name:       name,
			EntityType: entityType,
			Price:      price,
		}
		if quantity != nil {
			create.Quantity = *quantity
		}
		if origin := field("origin_barcode"); origin != "" {
			create.OriginBarcode = &origin
		}
		if descr := field("description"); descr != "" {
			create.Description = &descr
		}
		if wid := field("warehouse_id"); wid != "" {
			create.WarehouseID = &wid
		}
		if status := field("status"); status != "" {
			create.Status = &status
		}
		if _, err := s.engine.Create(ctx, create, userID); err != nil {
			return err
		}
		result.Created++
		return nil

	default:
		return err
	}
}

// EnqueueEmailExport pushes the export onto the email queue; generation and
// delivery happen in the worker pool, off the request path.
func (s *exportService) EnqueueEmailExport(ctx context.Context, req dto.EmailExportRequest) error {
	if s.queue == nil {
		return ErrValidation("background jobs are not available")
	}
	return s.queue.Enqueue(ctx, QueueEmail, EmailExportJob{
		ToEmail:    req.ToEmail,
		EntityType: req.EntityType,
	})
}

func (s *exportService) ExportFilename(entityType string) string {
	stamp := time.Now().Format("20060102-150405")
	if entityType != "" {
		return fmt.Sprintf("inventory-%s-%s.csv", entityType, stamp)
	}
	return fmt.Sprintf("inventory-%s.csv", stamp)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidStr(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
