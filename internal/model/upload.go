package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upload binds a stored blob to its creator and to at most one owning entity.
// BlobRef is whatever the blob store returned (relative path, object key or URL).
type Upload struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Filename    string    `gorm:"type:varchar(255);not null"`
	BlobRef     string    `gorm:"type:varchar(512);not null"`
	ContentType string    `gorm:"type:varchar(128)"`
	Size        int64     `gorm:"not null;default:0"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`

	CertificateID          *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ReferenceCertificateID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`

	CreatedAt time.Time
}

func (u *Upload) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// All returns every model in dependency order, for AutoMigrate in tests and tools.
func All() []any {
	return []any{&User{}, &Certificate{}, &ReferenceCertificate{}, &Upload{}}
}
