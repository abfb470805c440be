package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m, _ := h.seed(t, "Mona Manager", identity.RoleManager, nil)
	mid := m.ID.String()

	u, err := h.auth.Register(ctx, dto.RegisterRequest{
		Name: "Esha", Email: "Esha@Example.com", Password: "s3cret-pass", ManagerID: &mid,
	})
	require.NoError(t, err)
	assert.Equal(t, "employee", u.Role)
	assert.Equal(t, "esha@example.com", u.Email)
	assert.Equal(t, mid, *u.ManagerID)

	_, err = h.auth.Register(ctx, dto.RegisterRequest{Name: "Dup", Email: "esha@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apierror.ErrConflict)

	resp, err := h.auth.Login(ctx, dto.LoginRequest{Email: "ESHA@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	claim, err := h.tokens.ParseAccess(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleEmployee, claim.Role)
	assert.Equal(t, u.ID, claim.UserID.String())

	_, err = h.auth.Login(ctx, dto.LoginRequest{Email: "esha@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
	_, err = h.auth.Login(ctx, dto.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
}

func TestAuth_RegisterValidatesManager(t *testing.T) {
	h := newHarness(t)
	e, _ := h.seed(t, "Esha Employee", identity.RoleEmployee, nil)
	eid := e.ID.String()
	bad := "not-a-uuid"

	_, err := h.auth.Register(context.Background(), dto.RegisterRequest{
		Name: "New", Email: "new@example.com", Password: "s3cret-pass", ManagerID: &eid,
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = h.auth.Register(context.Background(), dto.RegisterRequest{
		Name: "New", Email: "new@example.com", Password: "s3cret-pass", ManagerID: &bad,
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestAuth_PasswordReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Register(ctx, dto.RegisterRequest{Name: "Esha", Email: "esha@example.com", Password: "old-password"})
	require.NoError(t, err)

	err = h.auth.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	require.NoError(t, h.auth.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "esha@example.com"}))
	sent := h.queue.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].Kind)

	const marker = "http://portal.test/reset-password/"
	i := strings.Index(sent[0].Body, marker)
	require.GreaterOrEqual(t, i, 0)
	raw := strings.Fields(sent[0].Body[i+len(marker):])[0]

	login, err := h.auth.Login(ctx, dto.LoginRequest{Email: "esha@example.com", Password: "old-password"})
	require.NoError(t, err)
	err = h.auth.ResetPassword(ctx, login.AccessToken, dto.ResetPasswordRequest{Password: "new-password"})
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)

	require.NoError(t, h.auth.ResetPassword(ctx, raw, dto.ResetPasswordRequest{Password: "new-password"}))
	_, err = h.auth.Login(ctx, dto.LoginRequest{Email: "esha@example.com", Password: "old-password"})
	assert.ErrorIs(t, err, apierror.ErrUnauthorized)
	_, err = h.auth.Login(ctx, dto.LoginRequest{Email: "esha@example.com", Password: "new-password"})
	assert.NoError(t, err)
}

func TestAuth_Profile(t *testing.T) {
	h := newHarness(t)
	m, _ := h.seed(t, "Mona Manager", identity.RoleManager, nil)
	_, ec := h.seed(t, "Esha Employee", identity.RoleEmployee, m)

	p, err := h.auth.Profile(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, "Esha Employee", p.Name)
	assert.Equal(t, m.ID.String(), *p.ManagerID)
}
