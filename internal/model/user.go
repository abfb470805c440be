package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/identity"
)

// User is a portal account. ManagerID is a weak back-reference into the same
// table: it must point at a manager or admin and the chain must stay acyclic.
// Role never changes after creation; users are deactivated, never deleted.
type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Name         string        `gorm:"type:varchar(100);not null"`
	Email        string        `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string        `gorm:"not null"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'employee'"`
	ManagerID    *uuid.UUID    `gorm:"type:uuid;index"`
	Active       bool          `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Manager *User `gorm:"foreignKey:ManagerID"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Claim returns the identity pair carried by tokens issued for u.
func (u *User) Claim() identity.Claim {
	return identity.Claim{UserID: u.ID, Role: u.Role}
}
