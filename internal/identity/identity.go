// Package identity defines roles and the verified identity claim that is
// threaded through every request via context.Context.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is one of admin | manager | employee. Immutable after user creation.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanManage reports whether users with this role may appear as someone's manager.
func (r Role) CanManage() bool { return r == RoleAdmin || r == RoleManager }

// IsReviewer reports whether the role may review certificates.
func (r Role) IsReviewer() bool { return r == RoleAdmin || r == RoleManager }

func (r Role) String() string { return string(r) }

// Claim is the verified {id, role} pair produced by the token layer.
type Claim struct {
	UserID uuid.UUID
	Role   Role
}

// Valid reports whether the claim carries an id and a known role.
func (c Claim) Valid() bool {
	if c.UserID == uuid.Nil {
		return false
	}
	_, err := ParseRole(string(c.Role))
	return err == nil
}

type ctxKey struct{}

// WithClaim returns a child context carrying the claim.
func WithClaim(ctx context.Context, c Claim) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext extracts the claim stored by WithClaim.
func FromContext(ctx context.Context) (Claim, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claim)
	return c, ok
}
