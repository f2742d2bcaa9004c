package core

import (
	"fmt"
	"strings"
)

// ChangeRequest is a user-submitted proposal for an inventory mutation.
// It is normalized and validated at the boundary before anything is
// persisted; the ledger only ever holds well-formed changes.
type ChangeRequest struct {
	Type           ChangeType   `json:"type"`
	Item           ItemPayload  `json:"item"`
	Original       *ItemPayload `json:"original,omitempty"`
	TargetChangeID string       `json:"target_change_id,omitempty"`
	RequestedBy    string       `json:"requested_by"`
	BatchID        string       `json:"batch_id,omitempty"`

	// Warnings collects data-quality notes produced by Normalize (e.g. an
	// unparseable quantity coerced to 0). They ride along on the stored
	// change so the reviewer sees them.
	Warnings []string `json:"warnings,omitempty"`
}

// Normalize cleans up user input, dealing with common formatting issues.
// Part numbers are trimmed and uppercased so "bc547 " and "BC547" are the
// same part. Unparseable quantities are recorded as warnings rather than
// silently accepted.
func (r *ChangeRequest) Normalize() {
	r.Item.PartNumber = strings.ToUpper(strings.TrimSpace(r.Item.PartNumber))
	r.RequestedBy = strings.TrimSpace(r.RequestedBy)
	r.BatchID = strings.TrimSpace(r.BatchID)
	r.TargetChangeID = strings.TrimSpace(r.TargetChangeID)

	if r.Original != nil {
		r.Original.PartNumber = strings.ToUpper(strings.TrimSpace(r.Original.PartNumber))
	}

	if r.Item.Quantity != nil && !r.Item.Quantity.Valid {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("quantity for part %q failed numeric parsing and was treated as 0", r.Item.PartNumber))
	}
	if r.Item.ReorderPoint != nil && !r.Item.ReorderPoint.Valid {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("reorder point for part %q failed numeric parsing; the configured default applies", r.Item.PartNumber))
	}
}

// Validate enforces the per-type input constraints. Errors wrap
// ErrValidation.
func (r *ChangeRequest) Validate() error {
	if r.RequestedBy == "" {
		return fmt.Errorf("%w: change must carry a requester identity", ErrValidation)
	}

	switch r.Type {
	case ChangeTypeAdd, ChangeTypeEdit:
		if r.Item.PartNumber == "" {
			return fmt.Errorf("%w: %s change must include a part number", ErrValidation, r.Type)
		}
	case ChangeTypeAddStock:
		if r.TargetChangeID == "" {
			return fmt.Errorf("%w: add_stock_to_pending change must reference a target change id", ErrValidation)
		}
		if r.Item.Quantity == nil {
			return fmt.Errorf("%w: add_stock_to_pending change must include an additional quantity", ErrValidation)
		}
		if r.Item.Quantity.Value <= 0 {
			return fmt.Errorf("%w: additional quantity must be > 0, got %d", ErrValidation, r.Item.Quantity.Value)
		}
	default:
		return fmt.Errorf("%w: unrecognized change type %q", ErrValidation, r.Type)
	}

	if r.Item.Quantity != nil && r.Item.Quantity.Value < 0 {
		return fmt.Errorf("%w: quantity cannot be negative for part %s", ErrValidation, r.Item.PartNumber)
	}
	if r.Item.ReorderPoint != nil && r.Item.ReorderPoint.Value < 0 {
		return fmt.Errorf("%w: reorder point cannot be negative for part %s", ErrValidation, r.Item.PartNumber)
	}

	return nil
}
