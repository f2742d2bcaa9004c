package core

// ComputeLowStock returns every item whose quantity is at or below its
// effective reorder point. The effective reorder point is the item's own
// threshold when set, otherwise defaultReorderPoint.
//
// Input order is preserved — no implicit sort. Callers needing a display
// order must sort explicitly.
func ComputeLowStock(items []InventoryItem, defaultReorderPoint int) []LowStockItem {
	var low []LowStockItem
	for _, item := range items {
		effective := defaultReorderPoint
		if item.ReorderPoint != nil {
			effective = *item.ReorderPoint
		}
		if item.Quantity <= effective {
			low = append(low, LowStockItem{Item: item, EffectiveReorderPoint: effective})
		}
	}
	return low
}
