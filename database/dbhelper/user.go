package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ray-remotestate/canteen/database"
	"github.com/ray-remotestate/canteen/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, name, email, phone, hashedPassword string, roles ...models.Role) (models.User, error) {
	user := models.User{Name: name, Email: email, Phone: phone, Roles: roles}

	// user row and its roles commit together or not at all
	err := database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, phone, password)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			name, email, phone, hashedPassword).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		for _, role := range roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
				return fmt.Errorf("assign role %s: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepo) IsUserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL
		)`, email).Scan(&exists)
	return exists, err
}

// GetByEmail returns the active user including the password hash.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, password, created_at
		FROM users
		WHERE `+where+` AND archived_at IS NULL`, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("query user: %w", err)
	}

	roles, err := r.rolesByUserID(ctx, []uuid.UUID{u.ID})
	if err != nil {
		return models.User{}, err
	}
	u.Roles = roles[u.ID]
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, created_at
		FROM users
		WHERE archived_at IS NULL
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	var ids []uuid.UUID
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	roles, err := r.rolesByUserID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, nil
}

// Archive soft-deletes the user and its roles.
func (r *UserRepo) Archive(ctx context.Context, id uuid.UUID) error {
	return database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET archived_at = $2 WHERE id = $1 AND archived_at IS NULL`, id, now)
		if err != nil {
			return fmt.Errorf("archive user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.ErrUserNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_roles SET archived_at = $2 WHERE user_id = $1 AND archived_at IS NULL`, id, now); err != nil {
			return fmt.Errorf("archive user roles: %w", err)
		}
		return nil
	})
}

func (r *UserRepo) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT u.id)
		FROM users u
		JOIN user_roles ur ON u.id = ur.user_id
		WHERE ur.role = $1 AND u.archived_at IS NULL AND ur.archived_at IS NULL`, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) rolesByUserID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.Role, error) {
	out := make(map[uuid.UUID][]models.Role, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, role FROM user_roles
		WHERE user_id = ANY($1) AND archived_at IS NULL
		ORDER BY created_at`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		var role models.Role
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}
		out[userID] = append(out[userID], role)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
