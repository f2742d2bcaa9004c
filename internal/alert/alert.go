// Package alert implements the scheduled "check and notify" operation. The
// schedule itself lives outside the process: an external cron invokes one
// run per window. Runs are stateless and safe to repeat — a duplicate
// trigger produces at most a duplicate notification, never a duplicate
// mutation.
package alert

import (
	"context"

	"stockroom/internal/core"
	"stockroom/internal/notify"
)

// ItemLister is the slice of the inventory service a check needs.
type ItemLister interface {
	ListItems(ctx context.Context) ([]core.InventoryItem, error)
}

// Checker evaluates stock levels and alerts the channel when anything is at
// or below its effective reorder point.
type Checker struct {
	inventory           ItemLister
	notifier            notify.Notifier
	defaultReorderPoint int
	linkTemplate        string
}

// NewChecker constructs a Checker.
func NewChecker(inventory ItemLister, notifier notify.Notifier, defaultReorderPoint int, linkTemplate string) *Checker {
	return &Checker{
		inventory:           inventory,
		notifier:            notifier,
		defaultReorderPoint: defaultReorderPoint,
		linkTemplate:        linkTemplate,
	}
}

// Report describes one check run.
type Report struct {
	ItemsChecked int                 `json:"items_checked"`
	LowStock     []core.LowStockItem `json:"low_stock"`
	Notified     bool                `json:"notified"`
}

// Run performs one check-and-notify pass. Nothing is posted when no item is
// low on stock. A notification failure is returned alongside the report so
// the caller can distinguish "checked fine, delivery failed" from a failed
// check.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	items, err := c.inventory.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ItemsChecked: len(items),
		LowStock:     core.ComputeLowStock(items, c.defaultReorderPoint),
	}
	if len(report.LowStock) == 0 {
		return report, nil
	}

	msg := notify.BuildLowStockMessage(report.LowStock, c.linkTemplate)
	if err := c.notifier.Post(ctx, msg); err != nil {
		return report, err
	}
	report.Notified = true
	return report, nil
}
