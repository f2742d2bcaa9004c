package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeService is the approval workflow: it creates pending changes, tracks
// their lifecycle, and applies them to the inventory store upon approval.
//
// Status transitions are one-directional (pending → approved or rejected) and
// enforced with a conditional UPDATE at the storage layer, so concurrent
// decisions on the same change serialize on the ledger: the first writer
// wins and the loser observes ErrConflict.
type ChangeService interface {
	// SubmitChange validates and persists a new pending change. The record
	// is durable when SubmitChange returns; notifying reviewers is the
	// caller's concern and must never roll the record back.
	SubmitChange(ctx context.Context, req ChangeRequest) (*PendingChange, error)

	// DecideChange approves or rejects a pending change, recording the
	// approver identity and decision timestamp. Approving applies the
	// proposed mutation to the inventory store in the same transaction.
	// Deciding an already-decided change fails with ErrConflict.
	DecideChange(ctx context.Context, changeID string, decision ChangeStatus, decidedBy string) (*PendingChange, error)

	// RejectBatch transitions every pending change sharing batchID to
	// rejected in one statement and reports the count affected.
	RejectBatch(ctx context.Context, batchID, decidedBy string) (int, error)

	// ListChanges returns changes newest-first, optionally filtered by status.
	ListChanges(ctx context.Context, status *ChangeStatus) ([]PendingChange, error)

	// GetChange returns one change by id.
	GetChange(ctx context.Context, changeID string) (*PendingChange, error)
}

type changeService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
}

// NewChangeService constructs a ChangeService backed by PostgreSQL.
func NewChangeService(pool *pgxpool.Pool, inventory InventoryService) ChangeService {
	return &changeService{pool: pool, inventory: inventory}
}

const changeColumns = `id, change_type, status, item, original, target_change_id,
       requested_by, batch_id, warnings, decided_by, created_at, decided_at`

func scanChange(row pgx.Row) (*PendingChange, error) {
	var c PendingChange
	var itemJSON, originalJSON, warnsJSON []byte
	err := row.Scan(
		&c.ID, &c.Type, &c.Status, &itemJSON, &originalJSON, &c.TargetChangeID,
		&c.RequestedBy, &c.BatchID, &warnsJSON, &c.DecidedBy, &c.CreatedAt, &c.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemJSON, &c.Item); err != nil {
		return nil, fmt.Errorf("decode item payload: %w", err)
	}
	if originalJSON != nil {
		c.Original = &ItemPayload{}
		if err := json.Unmarshal(originalJSON, c.Original); err != nil {
			return nil, fmt.Errorf("decode original payload: %w", err)
		}
	}
	if warnsJSON != nil {
		if err := json.Unmarshal(warnsJSON, &c.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return &c, nil
}

func (s *changeService) SubmitChange(ctx context.Context, req ChangeRequest) (*PendingChange, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	itemJSON, err := json.Marshal(req.Item)
	if err != nil {
		return nil, fmt.Errorf("%w: encode item payload: %v", ErrValidation, err)
	}
	var originalJSON []byte
	if req.Original != nil {
		if originalJSON, err = json.Marshal(req.Original); err != nil {
			return nil, fmt.Errorf("%w: encode original payload: %v", ErrValidation, err)
		}
	}
	var warnsJSON []byte
	if len(req.Warnings) > 0 {
		warnsJSON, _ = json.Marshal(req.Warnings)
	}

	change := &PendingChange{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Item:        req.Item,
		Original:    req.Original,
		RequestedBy: req.RequestedBy,
		Status:      StatusPending,
		Warnings:    req.Warnings,
	}
	if req.BatchID != "" {
		change.BatchID = &req.BatchID
	}
	if req.TargetChangeID != "" {
		change.TargetChangeID = &req.TargetChangeID
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO pending_changes (id, change_type, status, item, original, target_change_id,
		                             requested_by, batch_id, warnings)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, change.ID, change.Type, itemJSON, originalJSON, change.TargetChangeID,
		change.RequestedBy, change.BatchID, warnsJSON,
	).Scan(&change.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert pending change: %v", ErrPersistence, err)
	}

	return change, nil
}

func (s *changeService) DecideChange(ctx context.Context, changeID string, decision ChangeStatus, decidedBy string) (*PendingChange, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, fmt.Errorf("%w: decision must be %q or %q, got %q", ErrValidation, StatusApproved, StatusRejected, decision)
	}
	if decidedBy == "" {
		return nil, fmt.Errorf("%w: decision must carry an approver identity", ErrValidation)
	}
	if _, err := uuid.Parse(changeID); err != nil {
		return nil, fmt.Errorf("%w: malformed change id %q", ErrValidation, changeID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	// Atomic compare-and-swap: the row flips out of 'pending' exactly once.
	// A plain read-then-write pair would leave a race window between
	// concurrent decisions.
	change, err := scanChange(tx.QueryRow(ctx, `
		UPDATE pending_changes
		SET status = $2, decided_by = $3, decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+changeColumns+`
	`, changeID, decision, decidedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyUndecidable(ctx, changeID)
		}
		return nil, fmt.Errorf("%w: decide change %s: %v", ErrPersistence, changeID, err)
	}

	if decision == StatusApproved {
		if err := s.applyApproved(ctx, tx, change); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit decision for change %s: %v", ErrPersistence, changeID, err)
	}
	return change, nil
}

// classifyUndecidable distinguishes "no such change" from "already decided"
// after a zero-row conditional update.
func (s *changeService) classifyUndecidable(ctx context.Context, changeID string) error {
	var status ChangeStatus
	err := s.pool.QueryRow(ctx,
		"SELECT status FROM pending_changes WHERE id = $1", changeID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: change %s", ErrNotFound, changeID)
		}
		return fmt.Errorf("%w: inspect change %s: %v", ErrPersistence, changeID, err)
	}
	return fmt.Errorf("%w: change %s is already %s", ErrConflict, changeID, status)
}

// applyApproved enacts an approved change against the inventory store (or,
// for add_stock_to_pending, against the referenced pending change) within
// the decision's transaction.
func (s *changeService) applyApproved(ctx context.Context, tx pgx.Tx, change *PendingChange) error {
	switch change.Type {
	case ChangeTypeAdd:
		return s.inventory.InsertItemTx(ctx, tx, change.Item.NewItem())

	case ChangeTypeEdit:
		item, err := s.inventory.GetItemTx(ctx, tx, change.Item.PartNumber)
		if err != nil {
			return err
		}
		change.Item.ApplyTo(item)
		return s.inventory.UpdateItemTx(ctx, tx, *item)

	case ChangeTypeAddStock:
		return s.addStockToPending(ctx, tx, change)

	default:
		return fmt.Errorf("%w: unrecognized change type %q on stored change %s", ErrValidation, change.Type, change.ID)
	}
}

// addStockToPending bumps the proposed quantity on the referenced pending
// add by the approved delta. The live inventory store stays untouched until
// that underlying add is itself approved.
func (s *changeService) addStockToPending(ctx context.Context, tx pgx.Tx, change *PendingChange) error {
	targetID := ""
	if change.TargetChangeID != nil {
		targetID = *change.TargetChangeID
	}

	var (
		targetType ChangeType
		status     ChangeStatus
		itemJSON   []byte
	)
	err := tx.QueryRow(ctx, `
		SELECT change_type, status, item FROM pending_changes WHERE id = $1 FOR UPDATE
	`, targetID).Scan(&targetType, &status, &itemJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: target change %s", ErrNotFound, targetID)
		}
		return fmt.Errorf("%w: lock target change %s: %v", ErrPersistence, targetID, err)
	}
	if targetType != ChangeTypeAdd {
		return fmt.Errorf("%w: target change %s is a %s, not an add", ErrValidation, targetID, targetType)
	}
	if status != StatusPending {
		return fmt.Errorf("%w: target change %s is already %s", ErrConflict, targetID, status)
	}

	var payload ItemPayload
	if err := json.Unmarshal(itemJSON, &payload); err != nil {
		return fmt.Errorf("%w: decode target payload: %v", ErrPersistence, err)
	}

	current := 0
	if payload.Quantity != nil {
		current = payload.Quantity.Value
	}
	payload.Quantity = &FlexInt{Value: current + change.Item.Quantity.Value, Valid: true}

	updated, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode target payload: %v", ErrPersistence, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE pending_changes SET item = $2 WHERE id = $1 AND status = 'pending'
	`, targetID, updated); err != nil {
		return fmt.Errorf("%w: update target change %s: %v", ErrPersistence, targetID, err)
	}
	return nil
}

func (s *changeService) RejectBatch(ctx context.Context, batchID, decidedBy string) (int, error) {
	if batchID == "" {
		return 0, fmt.Errorf("%w: batch id is required", ErrValidation)
	}
	if decidedBy == "" {
		return 0, fmt.Errorf("%w: batch rejection must carry an approver identity", ErrValidation)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE pending_changes
		SET status = 'rejected', decided_by = $2, decided_at = NOW()
		WHERE batch_id = $1 AND status = 'pending'
	`, batchID, decidedBy)
	if err != nil {
		return 0, fmt.Errorf("%w: reject batch %s: %v", ErrPersistence, batchID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *changeService) ListChanges(ctx context.Context, status *ChangeStatus) ([]PendingChange, error) {
	query := "SELECT " + changeColumns + " FROM pending_changes"
	args := []any{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query pending changes: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var changes []PendingChange
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan pending change: %v", ErrPersistence, err)
		}
		changes = append(changes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pending changes: %v", ErrPersistence, err)
	}
	return changes, nil
}

func (s *changeService) GetChange(ctx context.Context, changeID string) (*PendingChange, error) {
	if _, err := uuid.Parse(changeID); err != nil {
		return nil, fmt.Errorf("%w: malformed change id %q", ErrValidation, changeID)
	}
	c, err := scanChange(s.pool.QueryRow(ctx,
		"SELECT "+changeColumns+" FROM pending_changes WHERE id = $1", changeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: change %s", ErrNotFound, changeID)
		}
		return nil, fmt.Errorf("%w: fetch change %s: %v", ErrPersistence, changeID, err)
	}
	return c, nil
}
