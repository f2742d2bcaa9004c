package app

import (
	"context"

	"stockroom/internal/alert"
	"stockroom/internal/core"
)

// ApplicationService is the single interface all adapters call. It decouples
// presentation from business logic. Implementations must contain no display
// logic of any kind.
type ApplicationService interface {
	// SubmitChange validates and persists a new pending change, then alerts
	// reviewers through the Notifier. The pending record is durable before
	// notification is attempted; a notification failure surfaces as a
	// warning on an otherwise successful result, never as an error.
	SubmitChange(ctx context.Context, req core.ChangeRequest) (*SubmitResult, error)

	// DecideChange approves or rejects one pending change, applying approved
	// mutations to the inventory store. Already-decided changes fail with
	// core.ErrConflict.
	DecideChange(ctx context.Context, changeID string, decision core.ChangeStatus, decidedBy string) (*ChangeResult, error)

	// RejectBatch rejects every pending change in a batch and reports the
	// count affected.
	RejectBatch(ctx context.Context, batchID, decidedBy string) (*BatchResult, error)

	// ListChanges returns changes newest-first, optionally filtered by status.
	ListChanges(ctx context.Context, status *core.ChangeStatus) (*ChangeListResult, error)

	// GetChange returns one change by id.
	GetChange(ctx context.Context, changeID string) (*ChangeResult, error)

	// ListItems returns all inventory items ordered by part number.
	ListItems(ctx context.Context) (*ItemListResult, error)

	// GetItem returns one inventory item by part number.
	GetItem(ctx context.Context, partNumber string) (*ItemResult, error)

	// LowStockReport returns the items currently at or below their effective
	// reorder point, without notifying anyone.
	LowStockReport(ctx context.Context) (*LowStockResult, error)

	// RunLowStockCheck performs one check-and-notify pass (the operation the
	// weekly scheduler triggers). Safe to invoke repeatedly: at-least-once
	// notification, no other side effects. A delivery failure surfaces as a
	// warning on the result.
	RunLowStockCheck(ctx context.Context) (*AlertResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}

// SubmitResult is returned by SubmitChange.
type SubmitResult struct {
	Change *core.PendingChange `json:"change"`
	// NotifyWarning is non-empty when the pending change was created but the
	// reviewer notification could not be delivered.
	NotifyWarning string `json:"notify_warning,omitempty"`
}

// ChangeResult is returned by change lifecycle operations.
type ChangeResult struct {
	Change *core.PendingChange `json:"change"`
}

// ChangeListResult is returned by ListChanges.
type ChangeListResult struct {
	Changes []core.PendingChange `json:"changes"`
}

// BatchResult is returned by RejectBatch.
type BatchResult struct {
	BatchID  string `json:"batch_id"`
	Rejected int    `json:"rejected"`
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []core.InventoryItem `json:"items"`
}

// ItemResult is returned by GetItem.
type ItemResult struct {
	Item *core.InventoryItem `json:"item"`
}

// LowStockResult is returned by LowStockReport.
type LowStockResult struct {
	DefaultReorderPoint int                 `json:"default_reorder_point"`
	Items               []core.LowStockItem `json:"items"`
}

// AlertResult is returned by RunLowStockCheck.
type AlertResult struct {
	Report *alert.Report `json:"report"`
	// NotifyWarning is non-empty when low stock was found but the alert
	// could not be delivered.
	NotifyWarning string `json:"notify_warning,omitempty"`
}

// UserSession identifies an authenticated user.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
