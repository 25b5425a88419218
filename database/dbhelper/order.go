package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ray-remotestate/canteen/database"
	"github.com/ray-remotestate/canteen/models"
)

const orderColumns = `id, user_id, total, instructions, status, created_at, updated_at`

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func scanOrder(s rowScanner) (models.Order, error) {
	var o models.Order
	err := s.Scan(&o.ID, &o.UserID, &o.Total, &o.Instructions, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create stores the order and its lines in one transaction.
func (r *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	created := order
	err := database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, total, instructions, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			order.UserID, order.Total, order.Instructions, order.Status).
			Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, line := range order.Lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, menu_item_id, name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				created.ID, i, line.MenuItemID, line.Name, line.Quantity, line.UnitPrice); err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return created, nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := r.linesByOrderID(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return models.Order{}, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

// List returns matching orders newest first, lines included.
func (r *OrderRepo) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	where, args := orderWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	lines, err := r.linesByOrderID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepo) Count(ctx context.Context, f models.OrderFilter) (int, error) {
	where, args := orderWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepo) Revenue(ctx context.Context, f models.OrderFilter) (decimal.Decimal, error) {
	where, args := orderWhere(f)
	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total), 0) FROM orders`+where, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum order totals: %w", err)
	}
	return sum, nil
}

// UpdateStatus sets the status only if it still equals from, so two callers
// racing on the same order cannot both win.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
		}
		return models.ErrStatusConflict
	}
	return nil
}

func (r *OrderRepo) linesByOrderID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.OrderLine, error) {
	out := make(map[uuid.UUID][]models.OrderLine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, menu_item_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var l models.OrderLine
		if err := rows.Scan(&orderID, &l.MenuItemID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

func orderWhere(f models.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != uuid.Nil {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
