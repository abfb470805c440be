// Package policy decides who may do what to which certificate.
//
// Authorize is pure: it needs the caller's claim, the action, the target (nil
// when the target does not exist or the action has none) and the caller's
// team. Gate adds the directory lookup for callers that only have a claim.
package policy

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/identity"
)

type Action string

const (
	CreateCertificate Action = "certificate:create"
	ReadCertificate   Action = "certificate:read"
	EditCertificate   Action = "certificate:edit"
	ReviewCertificate Action = "certificate:review"
	DeleteCertificate Action = "certificate:delete"
	ListTeam          Action = "certificate:list_team"

	CreateReference Action = "reference:create"
	DeleteReference Action = "reference:delete"
	ReadReference   Action = "reference:read"
	ListReferences  Action = "reference:list"

	ViewStats Action = "stats:view"

	CreateUser  Action = "user:create"
	ManageUsers Action = "user:manage"
)

// targeted actions operate on an existing resource; a nil resource means it
// was not found.
var targeted = map[Action]bool{
	ReadCertificate:   true,
	EditCertificate:   true,
	ReviewCertificate: true,
	DeleteCertificate: true,
	DeleteReference:   true,
	ReadReference:     true,
}

// Resource identifies the target of a targeted action. OwnerID is uuid.Nil
// for resources without an individual owner.
type Resource struct {
	Kind    string
	OwnerID uuid.UUID
}

func Certificate(ownerID uuid.UUID) *Resource { return &Resource{Kind: "certificate", OwnerID: ownerID} }

func Reference() *Resource { return &Resource{Kind: "reference certificate"} }

// NeedsTeam reports whether Authorize consults the team for this claim and action.
func NeedsTeam(c identity.Claim, a Action) bool {
	return c.Role == identity.RoleManager && (a == ReadCertificate || a == ReviewCertificate)
}

// Authorize returns nil to allow, or a NotFound / Forbidden error.
func Authorize(c identity.Claim, a Action, res *Resource, team directory.Team) error {
	if !c.Valid() {
		return apierror.Unauthorized("missing or invalid identity")
	}
	if targeted[a] && res == nil {
		return apierror.NotFound("resource not found")
	}

	switch a {
	case CreateCertificate:
		if c.Role == identity.RoleAdmin {
			return apierror.Forbidden("admins do not submit certificates")
		}
		return nil

	case ReadCertificate:
		if c.Role == identity.RoleAdmin || res.OwnerID == c.UserID {
			return nil
		}
		if c.Role == identity.RoleManager && team.Contains(res.OwnerID) {
			return nil
		}
		return apierror.Forbidden("you are not allowed to view this certificate")

	case EditCertificate:
		if res.OwnerID == c.UserID {
			return nil
		}
		return apierror.Forbidden("only the submitter can edit a certificate")

	case ReviewCertificate:
		switch c.Role {
		case identity.RoleAdmin:
			return nil
		case identity.RoleManager:
			if team.Contains(res.OwnerID) {
				return nil
			}
			return apierror.Forbidden("certificate is outside your team")
		default:
			return apierror.Forbidden("only managers and admins can review certificates")
		}

	case DeleteCertificate:
		if c.Role == identity.RoleAdmin || res.OwnerID == c.UserID {
			return nil
		}
		return apierror.Forbidden("only the submitter or an admin can delete a certificate")

	case ManageUsers:
		if c.Role == identity.RoleAdmin {
			return nil
		}
		return apierror.Forbidden("admins only")

	case ListTeam, ViewStats, CreateReference, DeleteReference, CreateUser:
		if c.Role.IsReviewer() {
			return nil
		}
		return apierror.Forbidden("managers and admins only")

	case ReadReference, ListReferences:
		return nil
	}
	return apierror.Forbidden("unknown action")
}

// Scope returns the owners whose certificates c may list: nil for everyone
// (admins), the team for managers, and only c itself for employees.
func Scope(c identity.Claim, team directory.Team) []uuid.UUID {
	switch c.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleManager:
		return team.IDs()
	default:
		return []uuid.UUID{c.UserID}
	}
}

// Gate resolves teams through the directory before deciding.
type Gate struct {
	dir *directory.Directory
}

func NewGate(dir *directory.Directory) *Gate { return &Gate{dir: dir} }

// Authorize is the package-level Authorize with the team looked up on demand.
func (g *Gate) Authorize(ctx context.Context, c identity.Claim, a Action, res *Resource) error {
	var team directory.Team
	if NeedsTeam(c, a) && res != nil {
		team = g.dir.ResolveTeam(ctx, c.UserID)
	}
	return Authorize(c, a, res, team)
}

// Scope is the package-level Scope with the team looked up on demand.
func (g *Gate) Scope(ctx context.Context, c identity.Claim) []uuid.UUID {
	if c.Role != identity.RoleManager {
		return Scope(c, nil)
	}
	return Scope(c, g.dir.ResolveTeam(ctx, c.UserID))
}

// WithTx returns a gate whose team lookups run inside tx.
func (g *Gate) WithTx(tx *gorm.DB) *Gate { return &Gate{dir: g.dir.WithTx(tx)} }
