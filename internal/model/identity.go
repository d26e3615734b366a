package model

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Roles carried in identity claims.
const (
	RoleCustomer = "customer"
	RoleBusiness = "business"
	RoleDriver   = "driver"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller. BusinessID is the business a
// business-role caller works for.
type Identity struct {
	UserID     uuid.UUID
	Roles      []string
	BusinessID *uuid.UUID
}

// HasRole reports whether the identity carries the role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// Manages reports whether the identity may drive the order through its
// state machines: admins for any order, business staff for orders of their
// business, drivers for orders assigned to them.
func (i Identity) Manages(o *Order) bool {
	switch {
	case i.IsAdmin():
		return true
	case i.HasRole(RoleBusiness) && i.BusinessID != nil && *i.BusinessID == o.BusinessID:
		return true
	case i.HasRole(RoleDriver) && o.DriverID != nil && *o.DriverID == i.UserID:
		return true
	}
	return false
}

// CanSee reports whether the order resolves for the identity at all.
func (i Identity) CanSee(o *Order) bool {
	return o.UserID == i.UserID || i.Manages(o)
}

type identityKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
