package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockroom/internal/alert"
	"stockroom/internal/app"
	"stockroom/internal/core"
	"stockroom/internal/notify"

	"github.com/jackc/pgx/v5"
)

// fakeChanges satisfies core.ChangeService; SubmitChange always succeeds so
// the facade's notification behavior can be observed in isolation.
type fakeChanges struct{}

func (f *fakeChanges) SubmitChange(_ context.Context, req core.ChangeRequest) (*core.PendingChange, error) {
	return &core.PendingChange{
		ID:          "3f1e0c1a-0000-0000-0000-000000000010",
		Type:        req.Type,
		Item:        req.Item,
		RequestedBy: req.RequestedBy,
		Status:      core.StatusPending,
	}, nil
}

func (f *fakeChanges) DecideChange(context.Context, string, core.ChangeStatus, string) (*core.PendingChange, error) {
	return nil, core.ErrNotFound
}

func (f *fakeChanges) RejectBatch(context.Context, string, string) (int, error) { return 0, nil }

func (f *fakeChanges) ListChanges(context.Context, *core.ChangeStatus) ([]core.PendingChange, error) {
	return nil, nil
}

func (f *fakeChanges) GetChange(context.Context, string) (*core.PendingChange, error) {
	return nil, core.ErrNotFound
}

type fakeInventory struct {
	items []core.InventoryItem
}

func (f *fakeInventory) ListItems(context.Context) ([]core.InventoryItem, error) {
	return f.items, nil
}

func (f *fakeInventory) GetItem(context.Context, string) (*core.InventoryItem, error) {
	return nil, core.ErrNotFound
}

func (f *fakeInventory) GetItemTx(context.Context, pgx.Tx, string) (*core.InventoryItem, error) {
	return nil, core.ErrNotFound
}

func (f *fakeInventory) InsertItemTx(context.Context, pgx.Tx, core.InventoryItem) error { return nil }

func (f *fakeInventory) UpdateItemTx(context.Context, pgx.Tx, core.InventoryItem) error { return nil }

type fakeUsers struct{}

func (f *fakeUsers) GetByUsername(context.Context, string) (*core.User, error) {
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(context.Context, int) (*core.User, error) {
	return nil, core.ErrNotFound
}

// deadNotifier returns a real webhook notifier whose endpoint has already
// been shut down, so every delivery attempt fails at the transport.
func deadNotifier(t *testing.T) notify.Notifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	n, err := notify.NewWebhookNotifier(url)
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	return n
}

func liveNotifier(t *testing.T, posted *int) notify.Notifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*posted++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	n, err := notify.NewWebhookNotifier(srv.URL)
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	return n
}

func newAppService(inv *fakeInventory, notifier notify.Notifier) app.ApplicationService {
	checker := alert.NewChecker(inv, notifier, 10, "")
	return app.NewAppService(&fakeChanges{}, inv, &fakeUsers{}, notifier, checker, 10)
}

func submitRequest() core.ChangeRequest {
	return core.ChangeRequest{
		Type:        core.ChangeTypeAdd,
		Item:        core.ItemPayload{PartNumber: "BC547", Quantity: &core.FlexInt{Value: 100, Valid: true}},
		RequestedBy: "alice",
	}
}

// The pending record is durable before notification is attempted; an
// unreachable notifier must not fail the submission, only annotate it.
func TestAppService_SubmitChangeWarnsWhenNotifierUnreachable(t *testing.T) {
	svc := newAppService(&fakeInventory{}, deadNotifier(t))

	result, err := svc.SubmitChange(context.Background(), submitRequest())
	if err != nil {
		t.Fatalf("submission must succeed despite notifier failure, got %v", err)
	}
	if result.Change == nil || result.Change.Status != core.StatusPending {
		t.Fatalf("expected a pending change in the result, got %+v", result.Change)
	}
	if result.NotifyWarning == "" {
		t.Error("expected a populated notify warning when delivery fails")
	}
}

func TestAppService_SubmitChangeCleanWhenDelivered(t *testing.T) {
	posted := 0
	svc := newAppService(&fakeInventory{}, liveNotifier(t, &posted))

	result, err := svc.SubmitChange(context.Background(), submitRequest())
	if err != nil {
		t.Fatalf("SubmitChange failed: %v", err)
	}
	if result.NotifyWarning != "" {
		t.Errorf("no warning expected on successful delivery, got %q", result.NotifyWarning)
	}
	if posted != 1 {
		t.Errorf("expected exactly one notification, got %d", posted)
	}
}

// A delivery failure during the scheduled check is success-with-warning: the
// report still says what was found, and nothing escalates to an error.
func TestAppService_RunLowStockCheckWarnsWhenDeliveryFails(t *testing.T) {
	inv := &fakeInventory{items: []core.InventoryItem{{PartNumber: "BC547", Quantity: 2}}}
	svc := newAppService(inv, deadNotifier(t))

	result, err := svc.RunLowStockCheck(context.Background())
	if err != nil {
		t.Fatalf("check must succeed despite delivery failure, got %v", err)
	}
	if result.NotifyWarning == "" {
		t.Error("expected a populated notify warning when delivery fails")
	}
	if result.Report == nil || len(result.Report.LowStock) != 1 {
		t.Fatalf("report must still describe the findings, got %+v", result.Report)
	}
	if result.Report.Notified {
		t.Error("Notified must be false when delivery fails")
	}
}

func TestAppService_RunLowStockCheckCleanPass(t *testing.T) {
	posted := 0
	inv := &fakeInventory{items: []core.InventoryItem{{PartNumber: "BC547", Quantity: 2}}}
	svc := newAppService(inv, liveNotifier(t, &posted))

	result, err := svc.RunLowStockCheck(context.Background())
	if err != nil {
		t.Fatalf("RunLowStockCheck failed: %v", err)
	}
	if result.NotifyWarning != "" {
		t.Errorf("no warning expected on successful delivery, got %q", result.NotifyWarning)
	}
	if !result.Report.Notified || posted != 1 {
		t.Errorf("expected one delivered notification, posted=%d notified=%v", posted, result.Report.Notified)
	}
}
