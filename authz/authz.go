// Package authz is the single place where role and ownership rules are
// decided. Services call it before every admin-only or owner-only operation.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ray-remotestate/canteen/models"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Principal struct {
	UserID uuid.UUID
	Roles  []models.Role
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}

func (p Principal) Has(role models.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.Has(models.RoleAdmin)
}

// Rule decides whether p may act; owner is the user id owning the resource,
// uuid.Nil when there is none.
type Rule func(p Principal, owner uuid.UUID) error

func Authenticated(p Principal, _ uuid.UUID) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func Admin(p Principal, owner uuid.UUID) error {
	if err := Authenticated(p, owner); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func Owner(p Principal, owner uuid.UUID) error {
	if err := Authenticated(p, owner); err != nil {
		return err
	}
	if owner == uuid.Nil || p.UserID != owner {
		return ErrForbidden
	}
	return nil
}

func OwnerOrAdmin(p Principal, owner uuid.UUID) error {
	if err := Authenticated(p, owner); err != nil {
		return err
	}
	if p.IsAdmin() || (owner != uuid.Nil && p.UserID == owner) {
		return nil
	}
	return ErrForbidden
}

func Check(p Principal, rule Rule, owner uuid.UUID) error {
	return rule(p, owner)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the zero Principal when none was attached.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
