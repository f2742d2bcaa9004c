package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type ChangeType string

const (
	ChangeTypeAdd      ChangeType = "add"
	ChangeTypeEdit     ChangeType = "edit"
	ChangeTypeAddStock ChangeType = "add_stock_to_pending"
)

type ChangeStatus string

const (
	StatusPending  ChangeStatus = "pending"
	StatusApproved ChangeStatus = "approved"
	StatusRejected ChangeStatus = "rejected"
)

// InventoryItem is one part record in the live inventory store.
// PartNumber is the unique key. ReorderPoint is nil when the part has no
// explicit threshold; the configured default applies in that case.
type InventoryItem struct {
	PartNumber             string    `json:"part_number"`
	Description            string    `json:"description"`
	ManufacturerPartNumber string    `json:"manufacturer_part_number"`
	Quantity               int       `json:"quantity"`
	Supplier               string    `json:"supplier"`
	Location               string    `json:"location"`
	PackageType            string    `json:"package_type"`
	ReorderPoint           *int      `json:"reorder_point,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// FlexInt is an integer decoded from a loosely-typed source (form field,
// spreadsheet cell, hand-written JSON). It accepts a JSON number or a numeric
// string. Anything unparseable decodes to 0 with Valid=false instead of
// failing the decode — callers must surface that as a data-quality warning,
// since "unparseable" silently becoming "zero" overstates low-stock urgency.
type FlexInt struct {
	Value int
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value, f.Valid = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, ok := ParseQuantity(s); ok {
			f.Value, f.Valid = v, true
			return nil
		}
	}
	f.Value, f.Valid = 0, false
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// ParseQuantity coerces a loosely-typed quantity string to an integer.
// Returns false when the input fails numeric parsing; the conventional
// fallback value in that case is 0.
func ParseQuantity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	// Tolerate spreadsheet-style floats like "12.0".
	if fv, err := strconv.ParseFloat(s, 64); err == nil && fv == float64(int(fv)) {
		return int(fv), true
	}
	return 0, false
}

// ItemPayload is the proposed item data carried by a pending change.
// Every field except the part number is optional: an edit payload lists only
// the fields it changes, and applying it retains the prior values of absent
// fields.
type ItemPayload struct {
	PartNumber             string   `json:"part_number"`
	Description            *string  `json:"description,omitempty"`
	ManufacturerPartNumber *string  `json:"manufacturer_part_number,omitempty"`
	Quantity               *FlexInt `json:"quantity,omitempty"`
	Supplier               *string  `json:"supplier,omitempty"`
	Location               *string  `json:"location,omitempty"`
	PackageType            *string  `json:"package_type,omitempty"`
	ReorderPoint           *FlexInt `json:"reorder_point,omitempty"`
}

// NewItem builds a fresh InventoryItem from the payload. A missing or
// unparseable quantity becomes 0; a missing or unparseable reorder point
// stays nil so the configured default applies.
func (p ItemPayload) NewItem() InventoryItem {
	item := InventoryItem{PartNumber: p.PartNumber}
	p.ApplyTo(&item)
	return item
}

// ApplyTo merges the payload's present fields onto item, leaving absent
// fields untouched.
func (p ItemPayload) ApplyTo(item *InventoryItem) {
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.ManufacturerPartNumber != nil {
		item.ManufacturerPartNumber = *p.ManufacturerPartNumber
	}
	if p.Quantity != nil {
		item.Quantity = p.Quantity.Value
	}
	if p.Supplier != nil {
		item.Supplier = *p.Supplier
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
	if p.PackageType != nil {
		item.PackageType = *p.PackageType
	}
	if p.ReorderPoint != nil && p.ReorderPoint.Valid {
		rp := p.ReorderPoint.Value
		item.ReorderPoint = &rp
	}
}

// PendingChange is one proposed inventory mutation awaiting a human decision.
// Once a change leaves StatusPending it is immutable and serves as an audit
// record: DecidedBy and DecidedAt are written exactly once.
type PendingChange struct {
	ID             string       `json:"id"`
	Type           ChangeType   `json:"type"`
	Item           ItemPayload  `json:"item"`
	Original       *ItemPayload `json:"original,omitempty"`
	TargetChangeID *string      `json:"target_change_id,omitempty"`
	RequestedBy    string       `json:"requested_by"`
	Status         ChangeStatus `json:"status"`
	BatchID        *string      `json:"batch_id,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
	DecidedBy      *string      `json:"decided_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	DecidedAt      *time.Time   `json:"decided_at,omitempty"`
}

// LowStockItem is derived, never persisted: an inventory item whose quantity
// is at or below its effective reorder point.
type LowStockItem struct {
	Item                  InventoryItem `json:"item"`
	EffectiveReorderPoint int           `json:"effective_reorder_point"`
}
