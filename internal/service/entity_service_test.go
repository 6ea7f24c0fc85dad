package service

import (
	"context"
	"strings"
	"testing"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntityDefaults(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pkg, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "PKG-001",
		Name:       "Order 1",
		EntityType: model.TypePackage,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, pkg.Status)
	assert.Equal(t, "new", *pkg.Status, "package should pick up its type's default status")
	assert.Equal(t, 1, pkg.Quantity, "zero quantity defaults to one")

	ops := f.entities.historyOps(mustUUID(pkg.ID))
	require.Len(t, ops, 1)
	assert.Equal(t, model.OpCreate, ops[0])
}

func TestCreateEntityDuplicateBarcode(t *testing.T) {
	f := newFixture()
	f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	_, err := f.svc.Create(context.Background(), dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Another widget",
		EntityType: model.TypeItem,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "conflict", KindOf(err))
}

func TestCreateEntityUnknownType(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), dto.CreateEntityRequest{
		Barcode:    "X-001",
		Name:       "Mystery",
		EntityType: "pallet",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestCreateEntityWarehouseAndParentExclusive(t *testing.T) {
	f := newFixture()
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	wid := f.warehouse.String()
	_, err := f.svc.Create(context.Background(), dto.CreateEntityRequest{
		Barcode:     "ITEM-001",
		Name:        "Widget",
		EntityType:  model.TypeItem,
		WarehouseID: &wid,
		ParentID:    &box.ID,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestCreateEntityUnderParentChecksNesting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	// An item nests under a container.
	nested, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-002",
		Name:       "Nested widget",
		EntityType: model.TypeItem,
		ParentID:   &box.ID,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, nested.ParentID)
	assert.Equal(t, box.ID, *nested.ParentID)
	assert.Nil(t, nested.WarehouseID)

	// An item cannot hold children.
	_, err = f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "BOX-002",
		Name:       "Box in an item",
		EntityType: model.TypeContainer,
		ParentID:   &item.ID,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "invalid_target", KindOf(err))
}

func TestUpdateQuantityOnlyRecordsQuantityChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	id := mustUUID(item.ID)

	qty := 8
	_, err := f.svc.Update(ctx, id, dto.UpdateEntityRequest{Quantity: &qty}, nil)
	require.NoError(t, err)

	name := "Renamed widget"
	_, err = f.svc.Update(ctx, id, dto.UpdateEntityRequest{Name: &name, Quantity: intPtr(9)}, nil)
	require.NoError(t, err)

	ops := f.entities.historyOps(id)
	require.Len(t, ops, 3)
	assert.Equal(t, model.OpQuantityChange, ops[1], "a sole quantity change is recorded as quantity_change")
	assert.Equal(t, model.OpUpdate, ops[2], "mixed field changes are recorded as update")
}

func TestMoveIntoContainer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	moved, err := f.svc.Move(ctx, mustUUID(item.ID), dto.MoveEntityRequest{
		TargetParentID: &box.ID,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, box.ID, *moved.ParentID)
	assert.Nil(t, moved.WarehouseID, "moving under a parent clears the warehouse")

	ops := f.entities.historyOps(mustUUID(item.ID))
	assert.Equal(t, model.OpMove, ops[len(ops)-1])
}

func TestMovePartialQuantityIsImplicitSplit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	qty := 4
	split, err := f.svc.Move(ctx, mustUUID(item.ID), dto.MoveEntityRequest{
		TargetParentID: &box.ID,
		Quantity:       &qty,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, split.Quantity)
	assert.True(t, strings.HasPrefix(split.Barcode, "ITEM-001-split-"), "split barcode derives from the source")
	require.NotNil(t, split.ParentID)
	assert.Equal(t, box.ID, *split.ParentID)

	source, err := f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 6, source.Quantity, "source keeps the remainder")
	require.NotNil(t, source.WarehouseID)
	assert.Equal(t, f.warehouse.String(), *source.WarehouseID, "source stays where it was")
	assert.Equal(t, 10, source.Quantity+split.Quantity, "quantity is conserved")
}

func TestMoveQuantityExceedingStock(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 3)
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	qty := 7
	_, err := f.svc.Move(context.Background(), mustUUID(item.ID), dto.MoveEntityRequest{
		TargetParentID: &box.ID,
		Quantity:       &qty,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "insufficient_quantity", KindOf(err))
}

func TestMoveWithoutTarget(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 3)

	_, err := f.svc.Move(context.Background(), mustUUID(item.ID), dto.MoveEntityRequest{}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestMoveRejectsContainmentCycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	outer := f.createEntity("BOX-OUTER", "Outer", model.TypeContainer, 1)

	inner, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "BOX-INNER",
		Name:       "Inner",
		EntityType: model.TypeContainer,
		ParentID:   &outer.ID,
	}, nil)
	require.NoError(t, err)

	// Moving the outer box into its own child closes a cycle.
	_, err = f.svc.Move(ctx, mustUUID(outer.ID), dto.MoveEntityRequest{
		TargetParentID: &inner.ID,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "invalid_target", KindOf(err))

	// So does moving a box into itself.
	_, err = f.svc.Move(ctx, mustUUID(outer.ID), dto.MoveEntityRequest{
		TargetParentID: &outer.ID,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "invalid_target", KindOf(err))
}

func TestConvertItemToContainer(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	converted, err := f.svc.Convert(context.Background(), mustUUID(item.ID), dto.ConvertEntityRequest{
		NewType: model.TypeContainer,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.TypeContainer, converted.EntityType)

	ops := f.entities.historyOps(mustUUID(item.ID))
	assert.Equal(t, model.OpConvert, ops[len(ops)-1])
}

func TestConvertRejectsSameType(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	_, err := f.svc.Convert(context.Background(), mustUUID(item.ID), dto.ConvertEntityRequest{
		NewType: model.TypeItem,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestConvertWithChildrenNeedsCompatibleType(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	_, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Widget",
		EntityType: model.TypeItem,
		ParentID:   &box.ID,
	}, nil)
	require.NoError(t, err)

	// An item cannot hold the box's children.
	_, err = f.svc.Convert(ctx, mustUUID(box.ID), dto.ConvertEntityRequest{
		NewType: model.TypeItem,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "incompatible_conversion", KindOf(err))
}

func TestConvertNestedEntityChecksParent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	item, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Widget",
		EntityType: model.TypeItem,
		ParentID:   &box.ID,
	}, nil)
	require.NoError(t, err)

	// A package cannot sit under a container, so the conversion is rejected.
	_, err = f.svc.Convert(ctx, mustUUID(item.ID), dto.ConvertEntityRequest{
		NewType: model.TypePackage,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "incompatible_conversion", KindOf(err))
}

func TestSplitConservesQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)

	split, err := f.svc.Split(ctx, mustUUID(item.ID), dto.SplitEntityRequest{
		Quantity:   3,
		NewBarcode: "ITEM-001-B",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, split.Quantity)
	assert.Equal(t, "ITEM-001-B", split.Barcode)
	require.NotNil(t, split.WarehouseID, "split without a target inherits the source location")
	assert.Equal(t, f.warehouse.String(), *split.WarehouseID)

	source, err := f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 7, source.Quantity)

	// Both sides carry a split history row pointing at each other.
	assert.Equal(t, model.OpSplit, lastOp(f, item.ID))
	assert.Equal(t, model.OpSplit, lastOp(f, split.ID))
}

func TestSplitWholeQuantityRejected(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	_, err := f.svc.Split(context.Background(), mustUUID(item.ID), dto.SplitEntityRequest{
		Quantity:   5,
		NewBarcode: "ITEM-001-B",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "insufficient_quantity", KindOf(err), "split must leave the source with at least one unit")
}

func TestSplitBarcodeConflict(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	f.createEntity("ITEM-002", "Other", model.TypeItem, 1)

	_, err := f.svc.Split(context.Background(), mustUUID(item.ID), dto.SplitEntityRequest{
		Quantity:   2,
		NewBarcode: "ITEM-002",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "conflict", KindOf(err))
}

func TestMergeSumsQuantitiesAndDeletesSources(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	target := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	a := f.createEntity("ITEM-002", "Widget", model.TypeItem, 3)
	b := f.createEntity("ITEM-003", "Widget", model.TypeItem, 2)

	merged, err := f.svc.Merge(ctx, mustUUID(target.ID), dto.MergeEntitiesRequest{
		SourceEntityIDs: []string{a.ID, b.ID},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, merged.Quantity)

	_, err = f.svc.Get(ctx, mustUUID(a.ID))
	require.Error(t, err)
	assert.Equal(t, "not_found", KindOf(err))
	_, err = f.svc.Get(ctx, mustUUID(b.ID))
	require.Error(t, err)

	ops := f.entities.historyOps(mustUUID(target.ID))
	merges := 0
	for _, op := range ops {
		if op == model.OpMerge {
			merges++
		}
	}
	assert.Equal(t, 2, merges, "one merge row per absorbed source")
}

func TestMergeReparentsChildren(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	target := f.createEntity("BOX-001", "Box A", model.TypeContainer, 1)
	source := f.createEntity("BOX-002", "Box B", model.TypeContainer, 1)

	child, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Widget",
		EntityType: model.TypeItem,
		ParentID:   &source.ID,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Merge(ctx, mustUUID(target.ID), dto.MergeEntitiesRequest{
		SourceEntityIDs: []string{source.ID},
	}, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, mustUUID(child.ID))
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, target.ID, *got.ParentID, "children follow the merge to the target")
}

func TestMergeFoldsDuplicateClaims(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	target := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	a := f.createEntity("PKG-002", "Order 2", model.TypePackage, 1)
	b := f.createEntity("PKG-003", "Order 3", model.TypePackage, 1)
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)

	for _, claim := range []struct {
		holder string
		qty    int
	}{
		{target.ID, 1}, {a.ID, 2}, {b.ID, 3},
	} {
		_, err := f.svc.AddChild(ctx, mustUUID(claim.holder), dto.AddChildRequest{
			ChildBarcode: "ITEM-001",
			Quantity:     claim.qty,
		}, nil)
		require.NoError(t, err)
	}

	_, err := f.svc.Merge(ctx, mustUUID(target.ID), dto.MergeEntitiesRequest{
		SourceEntityIDs: []string{a.ID, b.ID},
	}, nil)
	require.NoError(t, err)

	rels, err := f.svc.ListRelations(ctx, mustUUID(target.ID))
	require.NoError(t, err)
	require.Len(t, rels, 1, "claims on the same child collapse into one relation")
	assert.Equal(t, 6, rels[0].Quantity)

	byChild, err := f.entities.ListRelationsByChild(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Len(t, byChild, 1, "no stale relation rows survive the merge")
}

func TestMergeRejectsMixedTypesBeforeMutating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	target := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	same := f.createEntity("ITEM-002", "Widget", model.TypeItem, 3)
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	_, err := f.svc.Merge(ctx, mustUUID(target.ID), dto.MergeEntitiesRequest{
		SourceEntityIDs: []string{same.ID, box.ID},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "partial_merge", KindOf(err))

	// Nothing moved, not even the compatible source.
	got, err := f.svc.Get(ctx, mustUUID(target.ID))
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	still, err := f.svc.Get(ctx, mustUUID(same.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, still.Quantity)
}

func TestMergeRejectsSelf(t *testing.T) {
	f := newFixture()
	target := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	_, err := f.svc.Merge(context.Background(), mustUUID(target.ID), dto.MergeEntitiesRequest{
		SourceEntityIDs: []string{target.ID},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestAdjustQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	id := mustUUID(item.ID)

	got, err := f.svc.AdjustQuantity(ctx, id, dto.AdjustQuantityRequest{Delta: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)

	got, err = f.svc.AdjustQuantity(ctx, id, dto.AdjustQuantityRequest{Delta: -8}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity, "quantity may reach exactly zero")

	_, err = f.svc.AdjustQuantity(ctx, id, dto.AdjustQuantityRequest{Delta: -1}, nil)
	require.Error(t, err)
	assert.Equal(t, "insufficient_quantity", KindOf(err))

	_, err = f.svc.AdjustQuantity(ctx, id, dto.AdjustQuantityRequest{Delta: 0}, nil)
	require.Error(t, err)
	assert.Equal(t, "validation_error", KindOf(err))
}

func TestAddRemoveChildRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)

	rel, err := f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode:     "ITEM-001",
		Quantity:         4,
		RemoveFromSource: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, rel.Quantity)
	assert.Equal(t, "ITEM-001", rel.ChildBarcode)

	got, err := f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity, "claimed units leave the child's stock")

	// A second claim on the same child folds into the existing relation.
	rel, err = f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode:     "ITEM-001",
		Quantity:         2,
		RemoveFromSource: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, rel.Quantity)

	rels, err := f.svc.ListRelations(ctx, mustUUID(pkg.ID))
	require.NoError(t, err)
	require.Len(t, rels, 1)

	err = f.svc.RemoveChild(ctx, mustUUID(pkg.ID), mustUUID(item.ID), true, nil)
	require.NoError(t, err)

	got, err = f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity, "returned units restore the child's stock")

	rels, err = f.svc.ListRelations(ctx, mustUUID(pkg.ID))
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestAddChildKeepsZeroQuantityChild(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 4)

	_, err := f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode:     "ITEM-001",
		Quantity:         4,
		RemoveFromSource: true,
	}, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity, "a fully claimed child survives at zero quantity")
}

func TestAddChildInsufficientStock(t *testing.T) {
	f := newFixture()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	f.createEntity("ITEM-001", "Widget", model.TypeItem, 2)

	_, err := f.svc.AddChild(context.Background(), mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode:     "ITEM-001",
		Quantity:         5,
		RemoveFromSource: true,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "insufficient_quantity", KindOf(err))
}

func TestAddChildOnLeafParent(t *testing.T) {
	f := newFixture()
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)
	f.createEntity("ITEM-002", "Other", model.TypeItem, 5)

	_, err := f.svc.AddChild(context.Background(), mustUUID(item.ID), dto.AddChildRequest{
		ChildBarcode: "ITEM-002",
		Quantity:     1,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "invalid_target", KindOf(err))
}

func TestAddChildAdvancesNewPackageToSourcing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)
	f.createEntity("ITEM-002", "Gadget", model.TypeItem, 10)

	_, err := f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode: "ITEM-001",
		Quantity:     2,
	}, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, mustUUID(pkg.ID))
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, "sourcing", *got.Status, "the first claim starts the sourcing phase")

	// Later statuses are never rewound by further additions.
	packed := "packed"
	_, err = f.svc.Update(ctx, mustUUID(pkg.ID), dto.UpdateEntityRequest{Status: &packed}, nil)
	require.NoError(t, err)
	_, err = f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode: "ITEM-002",
		Quantity:     1,
	}, nil)
	require.NoError(t, err)

	got, err = f.svc.Get(ctx, mustUUID(pkg.ID))
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, "packed", *got.Status)
}

func TestDeleteRejectsParentWithChildren(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	_, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Widget",
		EntityType: model.TypeItem,
		ParentID:   &box.ID,
	}, nil)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, mustUUID(box.ID), false, nil)
	require.Error(t, err)
	assert.Equal(t, "conflict", KindOf(err))
}

func TestForceDeleteReleasesChildren(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	box := f.createEntity("BOX-001", "Box", model.TypeContainer, 1)

	item, err := f.svc.Create(ctx, dto.CreateEntityRequest{
		Barcode:    "ITEM-001",
		Name:       "Widget",
		EntityType: model.TypeItem,
		ParentID:   &box.ID,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, mustUUID(box.ID), true, nil))

	// The child moves to the deleted container's location instead of
	// keeping a dangling parent pointer.
	released, err := f.svc.Get(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Nil(t, released.ParentID)
	require.NotNil(t, released.WarehouseID)
	assert.Equal(t, f.warehouse.String(), *released.WarehouseID)

	_, err = f.svc.Get(ctx, mustUUID(box.ID))
	assert.Equal(t, "not_found", KindOf(err))
}

func TestDeleteRejectsActiveRelations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 10)

	_, err := f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode:     "ITEM-001",
		Quantity:         4,
		RemoveFromSource: true,
	}, nil)
	require.NoError(t, err)

	// The package holds a live claim on 4 units; deleting it without force
	// would silently void them.
	err = f.svc.Delete(ctx, mustUUID(pkg.ID), false, nil)
	require.Error(t, err)
	assert.Equal(t, "conflict", KindOf(err))

	rels, err := f.entities.ListRelationsByChild(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Len(t, rels, 1, "rejected delete leaves the claim intact")
}

func TestForceDeleteCleansRelations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pkg := f.createEntity("PKG-001", "Order 1", model.TypePackage, 1)
	item := f.createEntity("ITEM-001", "Widget", model.TypeItem, 5)

	_, err := f.svc.AddChild(ctx, mustUUID(pkg.ID), dto.AddChildRequest{
		ChildBarcode: "ITEM-001",
		Quantity:     2,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, mustUUID(pkg.ID), true, nil))

	rels, err := f.entities.ListRelationsByChild(ctx, mustUUID(item.ID))
	require.NoError(t, err)
	assert.Empty(t, rels, "force-deleting the claim holder drops its relations")
}

func lastOp(f *fixture, id string) string {
	ops := f.entities.historyOps(mustUUID(id))
	if len(ops) == 0 {
		return ""
	}
	return ops[len(ops)-1]
}

func intPtr(i int) *int { return &i }
