package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"stockroom/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// setupTestDB connects to the dedicated TEST database and resets the tables
// this suite touches. Set TEST_DATABASE_URL in your .env or environment to
// run integration tests; the schema must already be migrated.
func setupTestDB(t *testing.T) (*pgxpool.Pool, core.InventoryService, core.ChangeService, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE pending_changes, inventory_items CASCADE;

		INSERT INTO inventory_items (part_number, description, quantity, supplier, location, reorder_point) VALUES
		('BC547',  'NPN transistor',     100, 'Mouser',  'Bin 3', 25),
		('LM358',  'Dual op-amp',          8, 'Digikey', 'Bin 7', NULL);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	invSvc := core.NewInventoryService(pool)
	chgSvc := core.NewChangeService(pool, invSvc)
	return pool, invSvc, chgSvc, ctx
}

func submitAdd(t *testing.T, ctx context.Context, svc core.ChangeService, part string, qty int, batchID string) *core.PendingChange {
	t.Helper()
	change, err := svc.SubmitChange(ctx, core.ChangeRequest{
		Type: core.ChangeTypeAdd,
		Item: core.ItemPayload{
			PartNumber: part,
			Quantity:   flexPtr(qty),
			Supplier:   strPtr("Mouser"),
		},
		RequestedBy: "alice",
		BatchID:     batchID,
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}
	return change
}

func TestChangeService_SubmitAndApproveAdd(t *testing.T) {
	_, invSvc, chgSvc, ctx := setupTestDB(t)

	change := submitAdd(t, ctx, chgSvc, "1N4148", 500, "")
	if change.Status != core.StatusPending {
		t.Fatalf("expected pending, got %s", change.Status)
	}

	decided, err := chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "bob")
	if err != nil {
		t.Fatalf("DecideChange failed: %v", err)
	}
	if decided.Status != core.StatusApproved {
		t.Errorf("expected approved, got %s", decided.Status)
	}
	if decided.DecidedBy == nil || *decided.DecidedBy != "bob" {
		t.Errorf("expected decided_by=bob, got %v", decided.DecidedBy)
	}
	if decided.DecidedAt == nil {
		t.Error("expected decided_at to be set")
	}

	item, err := invSvc.GetItem(ctx, "1N4148")
	if err != nil {
		t.Fatalf("approved add did not create the item: %v", err)
	}
	if item.Quantity != 500 {
		t.Errorf("quantity = %d, want 500", item.Quantity)
	}
}

func TestChangeService_DoubleDecisionConflicts(t *testing.T) {
	_, invSvc, chgSvc, ctx := setupTestDB(t)

	change := submitAdd(t, ctx, chgSvc, "1N4148", 500, "")
	if _, err := chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "bob"); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}

	// Second decision on the same id must fail with ErrConflict and must not
	// touch approver/timestamp or create a duplicate item.
	_, err := chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "mallory")
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, err := chgSvc.GetChange(ctx, change.ID)
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}
	if stored.DecidedBy == nil || *stored.DecidedBy != "bob" {
		t.Errorf("decided_by overwritten by losing decision: %v", stored.DecidedBy)
	}

	items, err := invSvc.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	count := 0
	for _, it := range items {
		if it.PartNumber == "1N4148" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 item for 1N4148, got %d", count)
	}
}

func TestChangeService_RejectLeavesInventoryUntouched(t *testing.T) {
	_, invSvc, chgSvc, ctx := setupTestDB(t)

	change := submitAdd(t, ctx, chgSvc, "1N4148", 500, "")
	decided, err := chgSvc.DecideChange(ctx, change.ID, core.StatusRejected, "bob")
	if err != nil {
		t.Fatalf("DecideChange failed: %v", err)
	}
	if decided.Status != core.StatusRejected {
		t.Errorf("expected rejected, got %s", decided.Status)
	}

	if _, err := invSvc.GetItem(ctx, "1N4148"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("rejected add must not create the item, got %v", err)
	}
}

func TestChangeService_ApproveEdit_RoundTrip(t *testing.T) {
	_, invSvc, chgSvc, ctx := setupTestDB(t)

	// Edit BC547: change quantity and location only. Every other field must
	// retain its prior value.
	change, err := chgSvc.SubmitChange(ctx, core.ChangeRequest{
		Type: core.ChangeTypeEdit,
		Item: core.ItemPayload{
			PartNumber: "BC547",
			Quantity:   flexPtr(80),
			Location:   strPtr("Bin 9"),
		},
		Original:    &core.ItemPayload{PartNumber: "BC547", Quantity: flexPtr(100), Location: strPtr("Bin 3")},
		RequestedBy: "alice",
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}

	if _, err := chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "bob"); err != nil {
		t.Fatalf("DecideChange failed: %v", err)
	}

	item, err := invSvc.GetItem(ctx, "BC547")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Quantity != 80 || item.Location != "Bin 9" {
		t.Errorf("edited fields not applied: qty=%d loc=%q", item.Quantity, item.Location)
	}
	if item.Description != "NPN transistor" || item.Supplier != "Mouser" {
		t.Errorf("absent fields must retain prior values: desc=%q supplier=%q", item.Description, item.Supplier)
	}
	if item.ReorderPoint == nil || *item.ReorderPoint != 25 {
		t.Errorf("reorder point must retain prior value, got %v", item.ReorderPoint)
	}
}

func TestChangeService_ApproveEdit_MissingItem(t *testing.T) {
	_, _, chgSvc, ctx := setupTestDB(t)

	change, err := chgSvc.SubmitChange(ctx, core.ChangeRequest{
		Type:        core.ChangeTypeEdit,
		Item:        core.ItemPayload{PartNumber: "NO-SUCH-PART", Quantity: flexPtr(1)},
		RequestedBy: "alice",
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}

	_, err = chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "bob")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The failed apply rolls the decision back: the change stays pending.
	stored, err := chgSvc.GetChange(ctx, change.ID)
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}
	if stored.Status != core.StatusPending {
		t.Errorf("expected change to stay pending after failed apply, got %s", stored.Status)
	}
}

func TestChangeService_AddStockToPending(t *testing.T) {
	_, invSvc, chgSvc, ctx := setupTestDB(t)

	target := submitAdd(t, ctx, chgSvc, "1N4148", 500, "")

	bump, err := chgSvc.SubmitChange(ctx, core.ChangeRequest{
		Type:           core.ChangeTypeAddStock,
		Item:           core.ItemPayload{Quantity: flexPtr(250)},
		TargetChangeID: target.ID,
		RequestedBy:    "alice",
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}

	if _, err := chgSvc.DecideChange(ctx, bump.ID, core.StatusApproved, "bob"); err != nil {
		t.Fatalf("DecideChange failed: %v", err)
	}

	// The live store is untouched until the underlying add is approved.
	if _, err := invSvc.GetItem(ctx, "1N4148"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("live store touched before underlying add approved: %v", err)
	}

	stored, err := chgSvc.GetChange(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}
	if stored.Item.Quantity == nil || stored.Item.Quantity.Value != 750 {
		t.Fatalf("expected target proposed quantity 750, got %+v", stored.Item.Quantity)
	}

	// Approving the underlying add now lands the bumped total.
	if _, err := chgSvc.DecideChange(ctx, target.ID, core.StatusApproved, "bob"); err != nil {
		t.Fatalf("approve underlying add failed: %v", err)
	}
	item, err := invSvc.GetItem(ctx, "1N4148")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Quantity != 750 {
		t.Errorf("quantity = %d, want 750", item.Quantity)
	}
}

func TestChangeService_AddStockTargetMustBeAnAdd(t *testing.T) {
	_, _, chgSvc, ctx := setupTestDB(t)

	// The target here is a pending edit, not an add. Approving a stock bump
	// against it must fail and leave both changes pending.
	target, err := chgSvc.SubmitChange(ctx, core.ChangeRequest{
		Type:        core.ChangeTypeEdit,
		Item:        core.ItemPayload{PartNumber: "BC547", Location: strPtr("Bin 9")},
		RequestedBy: "alice",
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}

	bump, err := chgSvc.SubmitChange(ctx, core.ChangeRequest{
		Type:           core.ChangeTypeAddStock,
		Item:           core.ItemPayload{Quantity: flexPtr(250)},
		TargetChangeID: target.ID,
		RequestedBy:    "alice",
	})
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}

	_, err = chgSvc.DecideChange(ctx, bump.ID, core.StatusApproved, "bob")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for non-add target, got %v", err)
	}

	for _, id := range []string{target.ID, bump.ID} {
		stored, err := chgSvc.GetChange(ctx, id)
		if err != nil {
			t.Fatalf("GetChange failed: %v", err)
		}
		if stored.Status != core.StatusPending {
			t.Errorf("change %s should stay pending, got %s", id, stored.Status)
		}
	}
}

func TestChangeService_RejectBatch(t *testing.T) {
	_, _, chgSvc, ctx := setupTestDB(t)

	submitAdd(t, ctx, chgSvc, "R-0001", 10, "B1")
	submitAdd(t, ctx, chgSvc, "R-0002", 10, "B1")
	submitAdd(t, ctx, chgSvc, "R-0003", 10, "B1")
	other := submitAdd(t, ctx, chgSvc, "R-0004", 10, "B2")

	count, err := chgSvc.RejectBatch(ctx, "B1", "bob")
	if err != nil {
		t.Fatalf("RejectBatch failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rejected, got %d", count)
	}

	stored, err := chgSvc.GetChange(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}
	if stored.Status != core.StatusPending {
		t.Errorf("change outside the batch must stay pending, got %s", stored.Status)
	}

	// A second rejection of the same batch finds nothing left to reject.
	count, err = chgSvc.RejectBatch(ctx, "B1", "bob")
	if err != nil {
		t.Fatalf("RejectBatch failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 on repeat rejection, got %d", count)
	}
}

func TestChangeService_DecideUnknownChange(t *testing.T) {
	_, _, chgSvc, ctx := setupTestDB(t)

	_, err := chgSvc.DecideChange(ctx, "3f1e0c1a-0000-0000-0000-0000000000ff", core.StatusApproved, "bob")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChangeService_ApproveDuplicateAddConflicts(t *testing.T) {
	_, _, chgSvc, ctx := setupTestDB(t)

	// BC547 already exists in the seed. Approving an add for it must fail
	// and leave the change pending.
	change := submitAdd(t, ctx, chgSvc, "BC547", 10, "")
	_, err := chgSvc.DecideChange(ctx, change.ID, core.StatusApproved, "bob")
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, err := chgSvc.GetChange(ctx, change.ID)
	if err != nil {
		t.Fatalf("GetChange failed: %v", err)
	}
	if stored.Status != core.StatusPending {
		t.Errorf("expected change to stay pending, got %s", stored.Status)
	}
}
