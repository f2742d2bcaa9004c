package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryService reads and mutates the live inventory store. There is no
// delete operation: parts are never hard-deleted.
type InventoryService interface {
	// Standalone reads (manage their own connections).
	ListItems(ctx context.Context) ([]InventoryItem, error)
	GetItem(ctx context.Context, partNumber string) (*InventoryItem, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by ChangeService to keep inventory writes atomic with
	// change-status transitions.

	// GetItemTx fetches and row-locks one item. Returns ErrNotFound if the
	// part does not exist.
	GetItemTx(ctx context.Context, tx pgx.Tx, partNumber string) (*InventoryItem, error)
	// InsertItemTx creates a new item. Returns ErrConflict if the part
	// number already exists.
	InsertItemTx(ctx context.Context, tx pgx.Tx, item InventoryItem) error
	// UpdateItemTx overwrites an existing item's attributes. Returns
	// ErrNotFound if the part does not exist.
	UpdateItemTx(ctx context.Context, tx pgx.Tx, item InventoryItem) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

// NewInventoryService constructs an InventoryService backed by PostgreSQL.
func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

const itemColumns = `part_number, description, manufacturer_part_number, quantity,
       supplier, location, package_type, reorder_point, created_at, updated_at`

func scanItem(row pgx.Row) (*InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(
		&item.PartNumber, &item.Description, &item.ManufacturerPartNumber, &item.Quantity,
		&item.Supplier, &item.Location, &item.PackageType, &item.ReorderPoint,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *inventoryService) ListItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		ORDER BY part_number
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query inventory items: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan inventory item: %v", ErrPersistence, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate inventory items: %v", ErrPersistence, err)
	}
	return items, nil
}

func (s *inventoryService) GetItem(ctx context.Context, partNumber string) (*InventoryItem, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE part_number = $1
	`, partNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: part %s", ErrNotFound, partNumber)
		}
		return nil, fmt.Errorf("%w: fetch part %s: %v", ErrPersistence, partNumber, err)
	}
	return item, nil
}

func (s *inventoryService) GetItemTx(ctx context.Context, tx pgx.Tx, partNumber string) (*InventoryItem, error) {
	item, err := scanItem(tx.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE part_number = $1
		FOR UPDATE
	`, partNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: part %s", ErrNotFound, partNumber)
		}
		return nil, fmt.Errorf("%w: lock part %s: %v", ErrPersistence, partNumber, err)
	}
	return item, nil
}

func (s *inventoryService) InsertItemTx(ctx context.Context, tx pgx.Tx, item InventoryItem) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO inventory_items
		            (part_number, description, manufacturer_part_number, quantity,
		             supplier, location, package_type, reorder_point)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (part_number) DO NOTHING
	`, item.PartNumber, item.Description, item.ManufacturerPartNumber, item.Quantity,
		item.Supplier, item.Location, item.PackageType, item.ReorderPoint)
	if err != nil {
		return fmt.Errorf("%w: insert part %s: %v", ErrPersistence, item.PartNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: part %s already exists", ErrConflict, item.PartNumber)
	}
	return nil
}

func (s *inventoryService) UpdateItemTx(ctx context.Context, tx pgx.Tx, item InventoryItem) error {
	tag, err := tx.Exec(ctx, `
		UPDATE inventory_items
		SET description = $2, manufacturer_part_number = $3, quantity = $4,
		    supplier = $5, location = $6, package_type = $7, reorder_point = $8,
		    updated_at = NOW()
		WHERE part_number = $1
	`, item.PartNumber, item.Description, item.ManufacturerPartNumber, item.Quantity,
		item.Supplier, item.Location, item.PackageType, item.ReorderPoint)
	if err != nil {
		return fmt.Errorf("%w: update part %s: %v", ErrPersistence, item.PartNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: part %s", ErrNotFound, item.PartNumber)
	}
	return nil
}
