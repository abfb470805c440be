// Package token issues and verifies the signed bearer credentials that carry
// an identity claim, and the short-lived password-reset tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/identity"
)

type Type string

const (
	TypeAccess        Type = "access"
	TypePasswordReset Type = "password_reset"
)

// Claims is the JWT payload. Subject and UserID both hold the user id.
type Claims struct {
	UserID string        `json:"user_id"`
	Role   identity.Role `json:"role,omitempty"`
	Type   Type          `json:"type"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewIssuer(secret string, accessTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), accessTTL: accessTTL, resetTTL: resetTTL, now: time.Now}
}

// AccessTTL is how long access tokens stay valid.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

func (i *Issuer) IssueAccess(c identity.Claim) (string, error) {
	return i.sign(c.UserID, c.Role, TypeAccess, i.accessTTL)
}

func (i *Issuer) IssuePasswordReset(userID uuid.UUID) (string, error) {
	return i.sign(userID, "", TypePasswordReset, i.resetTTL)
}

func (i *Issuer) sign(userID uuid.UUID, role identity.Role, typ Type, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID.String(),
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseAccess verifies an access token and returns its identity claim.
func (i *Issuer) ParseAccess(raw string) (identity.Claim, error) {
	c, err := i.parse(raw, TypeAccess)
	if err != nil {
		return identity.Claim{}, err
	}
	role, err := identity.ParseRole(string(c.Role))
	if err != nil {
		return identity.Claim{}, apierror.Unauthorized("malformed token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return identity.Claim{}, apierror.Unauthorized("malformed token")
	}
	return identity.Claim{UserID: id, Role: role}, nil
}

// ParsePasswordReset verifies a reset token and returns the user it was
// issued for. An access token is rejected even when its signature is valid.
func (i *Issuer) ParsePasswordReset(raw string) (uuid.UUID, error) {
	c, err := i.parse(raw, TypePasswordReset)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, apierror.Unauthorized("invalid reset token")
	}
	return id, nil
}

func (i *Issuer) parse(raw string, want Type) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierror.Unauthorized("token expired")
		}
		return nil, apierror.Unauthorized("invalid token")
	}
	if c.Type != want {
		return nil, apierror.Unauthorized("wrong token type")
	}
	return &c, nil
}
