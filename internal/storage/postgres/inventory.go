package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
)

const (
	inventoryColumns = `id, item_type, item_name, stock, threshold, price, is_active, description`

	listInventorySQL = `SELECT ` + inventoryColumns + ` FROM inventory
		WHERE is_active ORDER BY item_type, item_name`

	listInventoryByTypeSQL = `SELECT ` + inventoryColumns + ` FROM inventory
		WHERE is_active AND item_type = $1 ORDER BY item_name`

	getActiveItemSQL = `SELECT ` + inventoryColumns + ` FROM inventory
		WHERE is_active AND item_type = $1 AND item_name = $2`

	createItemSQL = `INSERT INTO inventory (id, item_type, item_name, stock, threshold, price, is_active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (item_type, item_name) DO UPDATE SET
			stock = EXCLUDED.stock, threshold = EXCLUDED.threshold,
			price = EXCLUDED.price, is_active = EXCLUDED.is_active,
			description = EXCLUDED.description`

	updateItemSQL = `UPDATE inventory SET
			stock = COALESCE($2, stock),
			threshold = COALESCE($3, threshold),
			price = COALESCE($4, price),
			is_active = COALESCE($5, is_active)
		WHERE id = $1
		RETURNING ` + inventoryColumns
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given
// pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// List returns all active catalog items ordered by type then name.
func (r *InventoryRepository) List(ctx context.Context) ([]inventory.Item, error) {
	rows, err := r.pool.Query(ctx, listInventorySQL)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// ListByType returns all active items of one ingredient type.
func (r *InventoryRepository) ListByType(ctx context.Context, t inventory.Type) ([]inventory.Item, error) {
	rows, err := r.pool.Query(ctx, listInventoryByTypeSQL, string(t))
	if err != nil {
		return nil, fmt.Errorf("listing inventory type %q: %w", t, err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetActive returns the active item with the given type and name.
func (r *InventoryRepository) GetActive(ctx context.Context, t inventory.Type, name string) (*inventory.Item, error) {
	rows, err := r.pool.Query(ctx, getActiveItemSQL, string(t), name)
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", t, name, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %q: %w", t, name, err)
	}
	return &item, nil
}

// Create upserts a catalog item keyed by (type, name).
func (r *InventoryRepository) Create(ctx context.Context, item *inventory.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, createItemSQL,
		item.ID, string(item.Type), item.Name, item.Stock, item.Threshold,
		item.Price, item.Active, item.Description,
	)
	if err != nil {
		return fmt.Errorf("creating inventory item %q: %w", item.Name, err)
	}
	return nil
}

// Update applies the non-nil patch fields and returns the updated item.
func (r *InventoryRepository) Update(ctx context.Context, id string, patch inventory.UpdatePatch) (*inventory.Item, error) {
	rows, err := r.pool.Query(ctx, updateItemSQL, id, patch.Stock, patch.Threshold, patch.Price, patch.Active)
	if err != nil {
		return nil, fmt.Errorf("updating inventory item %q: %w", id, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("updating inventory item %q: %w", id, err)
	}
	return &item, nil
}

func scanItem(row pgx.CollectableRow) (inventory.Item, error) {
	var (
		i        inventory.Item
		itemType string
		price    decimal.Decimal
	)
	err := row.Scan(&i.ID, &itemType, &i.Name, &i.Stock, &i.Threshold, &price, &i.Active, &i.Description)
	i.Type = inventory.Type(itemType)
	i.Price = price
	return i, err
}
