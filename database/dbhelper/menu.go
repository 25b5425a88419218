package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ray-remotestate/canteen/models"
)

const menuColumns = `id, name, description, price, category, is_available, created_at, updated_at`

// MenuRepo is the canteen catalog. It also serves as the cart's price source.
type MenuRepo struct {
	db *sql.DB
}

func NewMenuRepo(db *sql.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(s rowScanner) (models.MenuItem, error) {
	var m models.MenuItem
	err := s.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Category, &m.Available, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *MenuRepo) Lookup(ctx context.Context, id uuid.UUID) (models.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MenuItem{}, fmt.Errorf("%w: %s", models.ErrMenuItemNotFound, id)
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("query menu item: %w", err)
	}
	return m, nil
}

func (r *MenuRepo) List(ctx context.Context, f models.MenuFilter) ([]models.MenuItem, error) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.AvailableOnly {
		conds = append(conds, "is_available")
	}

	query := `SELECT ` + menuColumns + ` FROM menu_items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *MenuRepo) Create(ctx context.Context, m models.MenuItem) (models.MenuItem, error) {
	created, err := scanMenuItem(r.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (name, description, price, category, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+menuColumns,
		m.Name, m.Description, m.Price, m.Category, m.Available))
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}
	return created, nil
}

func (r *MenuRepo) Update(ctx context.Context, m models.MenuItem) (models.MenuItem, error) {
	updated, err := scanMenuItem(r.db.QueryRowContext(ctx, `
		UPDATE menu_items
		SET name = $2, description = $3, price = $4, category = $5, is_available = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+menuColumns,
		m.ID, m.Name, m.Description, m.Price, m.Category, m.Available))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MenuItem{}, fmt.Errorf("%w: %s", models.ErrMenuItemNotFound, m.ID)
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	return updated, nil
}

func (r *MenuRepo) ToggleAvailability(ctx context.Context, id uuid.UUID) (models.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx, `
		UPDATE menu_items
		SET is_available = NOT is_available, updated_at = NOW()
		WHERE id = $1
		RETURNING `+menuColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MenuItem{}, fmt.Errorf("%w: %s", models.ErrMenuItemNotFound, id)
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("toggle menu item: %w", err)
	}
	return m, nil
}

// Delete removes the item. Placed orders keep their own copy of name and price.
func (r *MenuRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrMenuItemNotFound, id)
	}
	return nil
}

func (r *MenuRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count menu items: %w", err)
	}
	return n, nil
}
