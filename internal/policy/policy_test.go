package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/testutil"
)

var (
	adminID   = uuid.New()
	managerID = uuid.New()
	otherMgr  = uuid.New()
	empID     = uuid.New()
	peerID    = uuid.New()

	admin    = identity.Claim{UserID: adminID, Role: identity.RoleAdmin}
	manager  = identity.Claim{UserID: managerID, Role: identity.RoleManager}
	manager2 = identity.Claim{UserID: otherMgr, Role: identity.RoleManager}
	employee = identity.Claim{UserID: empID, Role: identity.RoleEmployee}
	peer     = identity.Claim{UserID: peerID, Role: identity.RoleEmployee}

	// managerID manages empID; otherMgr manages peerID.
	teams = map[uuid.UUID]directory.Team{
		managerID: {managerID: {}, empID: {}},
		otherMgr:  {otherMgr: {}, peerID: {}},
	}
)

func decide(c identity.Claim, a Action, res *Resource) error {
	return Authorize(c, a, res, teams[c.UserID])
}

func allowed(t *testing.T, err error) {
	t.Helper()
	assert.NoError(t, err)
}

func forbidden(t *testing.T, err error) {
	t.Helper()
	assert.True(t, errors.Is(err, apierror.ErrForbidden), "want Forbidden, got %v", err)
}

func TestDecisionTable(t *testing.T) {
	own := Certificate(empID)

	t.Run("create certificate", func(t *testing.T) {
		forbidden(t, decide(admin, CreateCertificate, nil))
		allowed(t, decide(manager, CreateCertificate, nil))
		allowed(t, decide(employee, CreateCertificate, nil))
	})
	t.Run("read certificate", func(t *testing.T) {
		allowed(t, decide(admin, ReadCertificate, own))
		allowed(t, decide(manager, ReadCertificate, own))
		forbidden(t, decide(manager2, ReadCertificate, own))
		allowed(t, decide(employee, ReadCertificate, own))
		forbidden(t, decide(peer, ReadCertificate, own))
	})
	t.Run("edit certificate", func(t *testing.T) {
		forbidden(t, decide(admin, EditCertificate, own))
		forbidden(t, decide(manager, EditCertificate, own))
		allowed(t, decide(employee, EditCertificate, own))
		forbidden(t, decide(peer, EditCertificate, own))
	})
	t.Run("review certificate", func(t *testing.T) {
		allowed(t, decide(admin, ReviewCertificate, own))
		allowed(t, decide(manager, ReviewCertificate, own))
		forbidden(t, decide(manager2, ReviewCertificate, own))
		forbidden(t, decide(employee, ReviewCertificate, own))
		forbidden(t, decide(peer, ReviewCertificate, own))
	})
	t.Run("delete certificate", func(t *testing.T) {
		allowed(t, decide(admin, DeleteCertificate, own))
		forbidden(t, decide(manager, DeleteCertificate, own))
		allowed(t, decide(employee, DeleteCertificate, own))
		forbidden(t, decide(peer, DeleteCertificate, own))
	})
	t.Run("reference certificates", func(t *testing.T) {
		for _, c := range []identity.Claim{admin, manager, manager2} {
			allowed(t, decide(c, CreateReference, nil))
			allowed(t, decide(c, DeleteReference, Reference()))
		}
		forbidden(t, decide(employee, CreateReference, nil))
		forbidden(t, decide(employee, DeleteReference, Reference()))
		for _, c := range []identity.Claim{admin, manager, employee} {
			allowed(t, decide(c, ReadReference, Reference()))
			allowed(t, decide(c, ListReferences, nil))
		}
	})
	t.Run("users", func(t *testing.T) {
		allowed(t, decide(admin, CreateUser, nil))
		allowed(t, decide(manager, CreateUser, nil))
		forbidden(t, decide(employee, CreateUser, nil))
		allowed(t, decide(admin, ManageUsers, nil))
		forbidden(t, decide(manager, ManageUsers, nil))
	})
	t.Run("stats", func(t *testing.T) {
		allowed(t, decide(admin, ViewStats, nil))
		allowed(t, decide(manager, ViewStats, nil))
		forbidden(t, decide(employee, ViewStats, nil))
	})
}

func TestMissingResourceIsNotFound(t *testing.T) {
	for _, a := range []Action{ReadCertificate, EditCertificate, ReviewCertificate, DeleteCertificate, DeleteReference, ReadReference} {
		err := decide(admin, a, nil)
		assert.True(t, errors.Is(err, apierror.ErrNotFound), a)
		assert.False(t, errors.Is(err, apierror.ErrForbidden), a)
	}
}

func TestInvalidClaimIsUnauthorized(t *testing.T) {
	err := Authorize(identity.Claim{}, ReadReference, Reference(), nil)
	assert.True(t, errors.Is(err, apierror.ErrUnauthorized))
}

func TestManagerReadIffOwnerInTeam(t *testing.T) {
	owners := []uuid.UUID{managerID, empID, otherMgr, peerID, adminID, uuid.New()}
	for _, owner := range owners {
		err := decide(manager, ReadCertificate, Certificate(owner))
		assert.Equal(t, teams[managerID].Contains(owner), err == nil, owner)
	}
}

func TestScope(t *testing.T) {
	assert.Nil(t, Scope(admin, nil))
	assert.ElementsMatch(t, []uuid.UUID{managerID, empID}, Scope(manager, teams[managerID]))
	assert.Equal(t, []uuid.UUID{empID}, Scope(employee, nil))
}

func TestGate_ResolvesTeamFromDirectory(t *testing.T) {
	db := testutil.NewDB(t)
	gate := NewGate(directory.New(repository.NewUserRepository(db)))
	ctx := context.Background()

	m := testutil.SeedUser(t, db, "M", identity.RoleManager, nil)
	m2 := testutil.SeedUser(t, db, "M2", identity.RoleManager, nil)
	e := testutil.SeedUser(t, db, "E", identity.RoleEmployee, m)

	require.NoError(t, gate.Authorize(ctx, m.Claim(), ReadCertificate, Certificate(e.ID)))
	forbidden(t, gate.Authorize(ctx, m2.Claim(), ReadCertificate, Certificate(e.ID)))
	assert.ElementsMatch(t, []uuid.UUID{m.ID, e.ID}, gate.Scope(ctx, m.Claim()))
	assert.Equal(t, []uuid.UUID{m2.ID}, gate.Scope(ctx, m2.Claim()))
}
