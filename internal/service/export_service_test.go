package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportFixture() (*fixture, ExportService, *stubQueue) {
	f := newFixture()
	q := &stubQueue{}
	exports := NewExportService(f.entities, f.svc, q)
	return f, exports, q
}

func TestExportCSV(t *testing.T) {
	f, exports, _ := newExportFixture()
	ctx := context.Background()

	price := decimal.NewFromFloat(9.99)
	wid := f.warehouse.String()
	_, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:     "ITEM-001",
		Name:        "Widget",
		EntityType:  model.TypeItem,
		Quantity:    5,
		Price:       &price,
		WarehouseID: &wid,
	}, nil)
	require.NoError(t, err)
	f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	var buf bytes.Buffer
	rows, err := exports.ExportCSV(ctx, &buf, "")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per entity")
	assert.Equal(t, csvHeader, records[0])

	byBarcode := map[string][]string{}
	for _, rec := range records[1:] {
		byBarcode[rec[0]] = rec
	}
	item := byBarcode["ITEM-001"]
	require.NotNil(t, item)
	assert.Equal(t, "Widget", item[2])
	assert.Equal(t, "5", item[5])
	assert.Equal(t, "9.99", item[6])

	// Type filter narrows the export.
	buf.Reset()
	rows, err = exports.ExportCSV(ctx, &buf, model.TypeContainer)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestImportCSVUpsertsByBarcode(t *testing.T) {
	f, exports, _ := newExportFixture()
	ctx := context.Background()
	f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	input := strings.Join([]string{
		"barcode,name,entity_type,quantity,price",
		"ITEM-001,Widget renamed,item,8,4.50",
		"ITEM-002,New widget,item,3,",
		"ITEM-003,,,2,",
	}, "\n")

	result, err := exports.ImportCSV(ctx, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, result.Errors)

	updated, err := f.svc.GetByBarcode(ctx, "ITEM-001")
	require.NoError(t, err)
	assert.Equal(t, "Widget renamed", updated.Name)
	assert.Equal(t, 8, updated.Quantity)
	require.NotNil(t, updated.Price)
	assert.Equal(t, "4.5", updated.Price.String())

	// Missing name falls back to the barcode, missing type to item.
	bare, err := f.svc.GetByBarcode(ctx, "ITEM-003")
	require.NoError(t, err)
	assert.Equal(t, "ITEM-003", bare.Name)
	assert.Equal(t, model.TypeItem, bare.EntityType)
	assert.Equal(t, 2, bare.Quantity)

	// Imported rows carry history like any other mutation.
	assert.Equal(t, model.OpCreate, lastOp(f, bare.ID))
}

func TestImportCSVCollectsRowErrors(t *testing.T) {
	f, exports, _ := newExportFixture()
	ctx := context.Background()

	input := strings.Join([]string{
		"barcode,name,entity_type,quantity,price",
		",No barcode,item,1,",
		"ITEM-001,Bad price,item,1,cheap",
		"ITEM-002,Bad type,starship,1,",
		"ITEM-003,Good row,item,1,",
	}, "\n")

	result, err := exports.ImportCSV(ctx, strings.NewReader(input), nil)
	require.NoError(t, err, "row errors never fail the whole import")
	assert.Equal(t, 1, result.Created)
	assert.Len(t, result.Errors, 3)

	_, err = f.svc.GetByBarcode(ctx, "ITEM-003")
	require.NoError(t, err)
}

func TestImportCSVRequiresBarcodeColumn(t *testing.T) {
	_, exports, _ := newExportFixture()

	_, err := exports.ImportCSV(context.Background(), strings.NewReader("name,quantity\nWidget,1"), nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestEnqueueEmailExport(t *testing.T) {
	_, exports, q := newExportFixture()

	err := exports.EnqueueEmailExport(context.Background(), dto.EmailExportRequest{
		ToEmail:    "ops@example.com",
		EntityType: model.TypeItem,
	})
	require.NoError(t, err)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, QueueEmail, q.jobs[0].Queue)

	job, ok := q.jobs[0].Payload.(EmailExportJob)
	require.True(t, ok)
	assert.Equal(t, "ops@example.com", job.ToEmail)
}

func TestExportFilename(t *testing.T) {
	_, exports, _ := newExportFixture()

	assert.True(t, strings.HasPrefix(exports.ExportFilename(""), "inventory-"))
	assert.True(t, strings.HasPrefix(exports.ExportFilename("item"), "inventory-item-"))
	assert.True(t, strings.HasSuffix(exports.ExportFilename("item"), ".csv"))
}
