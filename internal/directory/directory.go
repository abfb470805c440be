// Package directory answers "who reports to whom". Teams are one level deep:
// a manager's direct reports plus the manager.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/repository"
)

// Entry is a row of the eligible-managers selector.
type Entry struct {
	ID   uuid.UUID     `json:"id"`
	Name string        `json:"name"`
	Role identity.Role `json:"role"`
}

// Team is a set of user ids.
type Team map[uuid.UUID]struct{}

func (t Team) Contains(id uuid.UUID) bool {
	_, ok := t[id]
	return ok
}

// IDs returns the members in no particular order. It is never nil, so it can
// be passed straight to an owner filter.
func (t Team) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	return ids
}

type Directory struct {
	users repository.UserRepository
}

func New(users repository.UserRepository) *Directory {
	return &Directory{users: users}
}

// WithTx returns a directory whose lookups run inside tx.
func (d *Directory) WithTx(tx *gorm.DB) *Directory {
	return &Directory{users: d.users.WithTx(tx)}
}

// ResolveTeam returns the direct reports of managerID plus managerID itself.
// Unknown ids and lookup failures yield an empty team.
func (d *Directory) ResolveTeam(ctx context.Context, managerID uuid.UUID) Team {
	team := Team{}
	if _, err := d.users.FindByID(ctx, managerID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("manager_id", managerID.String()).Msg("directory: resolve team")
		}
		return team
	}
	team[managerID] = struct{}{}
	reports, err := d.users.ListReports(ctx, managerID)
	if err != nil {
		log.Warn().Err(err).Str("manager_id", managerID.String()).Msg("directory: list reports")
		return team
	}
	for _, u := range reports {
		team[u.ID] = struct{}{}
	}
	return team
}

// TeamMembers returns the user records behind ResolveTeam, manager first.
func (d *Directory) TeamMembers(ctx context.Context, managerID uuid.UUID) ([]model.User, error) {
	self, err := d.users.FindByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.User{}, nil
		}
		return nil, err
	}
	reports, err := d.users.ListReports(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return append([]model.User{*self}, reports...), nil
}

// ListEligibleManagers returns every active manager and admin ordered by name.
func (d *Directory) ListEligibleManagers(ctx context.Context) ([]Entry, error) {
	users, err := d.users.ListByRoles(ctx, identity.RoleManager, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(users))
	for i, u := range users {
		out[i] = Entry{ID: u.ID, Name: u.Name, Role: u.Role}
	}
	return out, nil
}

// ValidateManager checks that managerID may become the manager of subjectID:
// it must be an active manager or admin and the assignment must not close a
// cycle. A nil managerID is always valid. subjectID may be uuid.Nil for a
// user that does not exist yet.
func (d *Directory) ValidateManager(ctx context.Context, subjectID uuid.UUID, managerID *uuid.UUID) error {
	if managerID == nil {
		return nil
	}
	if *managerID == subjectID {
		return apierror.Validation("a user cannot manage themselves")
	}
	mgr, err := d.users.FindByID(ctx, *managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.Validation("manager_id does not reference an existing user")
		}
		return err
	}
	if !mgr.Active || !mgr.Role.CanManage() {
		return apierror.Validation("manager_id must reference a manager or admin")
	}
	if subjectID == uuid.Nil {
		return nil
	}

	seen := map[uuid.UUID]bool{subjectID: true}
	for cur := mgr; cur.ManagerID != nil; {
		next := *cur.ManagerID
		if seen[next] {
			return apierror.Validation("manager assignment would create a cycle")
		}
		seen[next] = true
		if cur, err = d.users.FindByID(ctx, next); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
	}
	return nil
}

// AssignManager changes the reporting line of userID after validating it.
func (d *Directory) AssignManager(ctx context.Context, userID uuid.UUID, managerID *uuid.UUID) error {
	if _, err := d.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("user not found")
		}
		return err
	}
	if err := d.ValidateManager(ctx, userID, managerID); err != nil {
		return err
	}
	return d.users.UpdateManager(ctx, userID, managerID)
}
