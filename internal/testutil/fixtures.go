package testutil

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/model"
)

// SeedUser inserts an active user. The password hash is a placeholder; use the
// auth service when a test needs to log in.
func SeedUser(t *testing.T, db *gorm.DB, name string, role identity.Role, manager *model.User) *model.User {
	t.Helper()
	u := &model.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	if manager != nil {
		id := manager.ID
		u.ManagerID = &id
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedCertificate inserts a certificate owned by owner in the given status,
// together with its upload row.
func SeedCertificate(t *testing.T, db *gorm.DB, owner *model.User, title string, status lifecycle.Status) *model.Certificate {
	t.Helper()
	c := &model.Certificate{
		UserID:   owner.ID,
		Title:    title,
		Client:   "ACME",
		Filename: "cert.pdf",
		Status:   status,
	}
	require.NoError(t, db.Omit("Owner", "Upload").Create(c).Error)
	certID := c.ID
	up := &model.Upload{
		Filename:      "cert.pdf",
		BlobRef:       "seed/" + uuid.NewString() + ".pdf",
		UserID:        owner.ID,
		CertificateID: &certID,
	}
	require.NoError(t, db.Create(up).Error)
	c.Upload = up
	return c
}
