package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/order"
)

const (
	orderColumns = `id, owner_id, number, config, pricing, address, payment, status, history,
		estimated_delivery, actual_delivery, cooking_minutes, delivery_minutes,
		special_instructions, rating, is_active, version, created_at`

	createOrderSQL = `INSERT INTO orders (id, owner_id, number, config, pricing, address, payment,
		status, history, estimated_delivery, actual_delivery, cooking_minutes, delivery_minutes,
		special_instructions, rating, is_active, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	numberExistsSQL     = `SELECT EXISTS (SELECT 1 FROM orders WHERE number = $1)`

	listByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE owner_id = $1 AND is_active AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	countByOwnerSQL = `SELECT COUNT(*) FROM orders
		WHERE owner_id = $1 AND is_active AND ($2 = '' OR status = $2)`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	countOrdersSQL = `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`

	// The version predicate is the optimistic concurrency guard: when two
	// transitions race, exactly one matches the stored version and wins.
	updateOrderSQL = `UPDATE orders SET payment = $3, status = $4, history = $5,
		estimated_delivery = $6, actual_delivery = $7, rating = $8, is_active = $9,
		version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`

	statusCountsSQL = `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`

	completedRevenueSQL = `SELECT COALESCE(SUM((pricing->>'total_price')::numeric), 0)
		FROM orders WHERE payment->>'status' = 'completed'`
)

const defaultPageSize = 10

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// configuration, pricing, address, payment, rating, and history are stored
// as JSONB snapshots alongside the indexed scalar columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and assigns its repository ID.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	cols, err := marshalOrder(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OwnerID, o.Number, cols.config, cols.pricing, cols.address, cols.payment,
		string(o.Status), cols.history, o.EstimatedDeliveryAt, o.ActualDeliveryAt,
		o.CookingMinutes, o.DeliveryMinutes, o.SpecialInstructions, cols.rating,
		o.Active, o.Version, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByNumber returns a single order by its public tracking code.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number)
}

// NumberExists reports whether an order with the given tracking code exists.
func (r *OrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, numberExistsSQL, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking order number %q: %w", number, err)
	}
	return exists, nil
}

// ListByOwner returns one page of the owner's active orders, newest first,
// along with the total match count.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, f order.ListFilter) ([]order.Order, int, error) {
	limit, offset := pageBounds(f)

	rows, err := r.pool.Query(ctx, listByOwnerSQL, ownerID, string(f.Status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for %q: %w", ownerID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for %q: %w", ownerID, err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countByOwnerSQL, ownerID, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders for %q: %w", ownerID, err)
	}
	return orders, total, nil
}

// List returns one page of all orders for staff views.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	limit, offset := pageBounds(f)

	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}
	return orders, total, nil
}

// Update persists the mutable order fields with an optimistic version
// check. A stale version matches no row and surfaces ErrVersionConflict;
// on success the in-memory version is bumped to match the stored one.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	cols, err := marshalOrder(o)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.Version, cols.payment, string(o.Status), cols.history,
		o.EstimatedDeliveryAt, o.ActualDeliveryAt, cols.rating, o.Active,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrVersionConflict
	}
	o.Version++
	return nil
}

// StatusCounts returns the order distribution per status.
func (r *OrderRepository) StatusCounts(ctx context.Context) ([]order.StatusCount, error) {
	rows, err := r.pool.Query(ctx, statusCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.StatusCount, error) {
		var sc order.StatusCount
		err := row.Scan(&sc.Status, &sc.Count)
		return sc, err
	})
}

// CompletedRevenue sums the total price of all orders with a completed
// payment.
func (r *OrderRepository) CompletedRevenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	if err := r.pool.QueryRow(ctx, completedRevenueSQL).Scan(&revenue); err != nil {
		return decimal.Zero, fmt.Errorf("summing revenue: %w", err)
	}
	return revenue, nil
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	return &o, nil
}

func pageBounds(f order.ListFilter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// orderJSONB holds the serialized JSONB column values for one order.
type orderJSONB struct {
	config  []byte
	pricing []byte
	address []byte
	payment []byte
	history []byte
	rating  []byte // nil when the order has no rating
}

func marshalOrder(o *order.Order) (*orderJSONB, error) {
	var (
		cols orderJSONB
		err  error
	)
	if cols.config, err = json.Marshal(o.Config); err != nil {
		return nil, fmt.Errorf("marshaling order config: %w", err)
	}
	if cols.pricing, err = json.Marshal(o.Pricing); err != nil {
		return nil, fmt.Errorf("marshaling order pricing: %w", err)
	}
	if cols.address, err = json.Marshal(o.Address); err != nil {
		return nil, fmt.Errorf("marshaling order address: %w", err)
	}
	if cols.payment, err = json.Marshal(o.Payment); err != nil {
		return nil, fmt.Errorf("marshaling order payment: %w", err)
	}
	if cols.history, err = json.Marshal(o.History); err != nil {
		return nil, fmt.Errorf("marshaling order history: %w", err)
	}
	if o.Rating != nil {
		if cols.rating, err = json.Marshal(o.Rating); err != nil {
			return nil, fmt.Errorf("marshaling order rating: %w", err)
		}
	}
	return &cols, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                                  order.Order
		config, pricing, address, payment, history, rating []byte
		estimated, actual                                  *time.Time
		status                                             string
		createdAt                                          time.Time
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.Number, &config, &pricing, &address, &payment,
		&status, &history, &estimated, &actual, &o.CookingMinutes, &o.DeliveryMinutes,
		&o.SpecialInstructions, &rating, &o.Active, &o.Version, &createdAt,
	)
	if err != nil {
		return o, err
	}

	o.Status = order.Status(status)
	o.EstimatedDeliveryAt = estimated
	o.ActualDeliveryAt = actual
	o.CreatedAt = createdAt

	if err := json.Unmarshal(config, &o.Config); err != nil {
		return o, fmt.Errorf("unmarshaling order config: %w", err)
	}
	if err := json.Unmarshal(pricing, &o.Pricing); err != nil {
		return o, fmt.Errorf("unmarshaling order pricing: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return o, fmt.Errorf("unmarshaling order address: %w", err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return o, fmt.Errorf("unmarshaling order payment: %w", err)
	}
	if err := json.Unmarshal(history, &o.History); err != nil {
		return o, fmt.Errorf("unmarshaling order history: %w", err)
	}
	if len(rating) > 0 {
		o.Rating = new(order.Rating)
		if err := json.Unmarshal(rating, o.Rating); err != nil {
			return o, fmt.Errorf("unmarshaling order rating: %w", err)
		}
	}
	return o, nil
}
