package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferenceCertificate is an organization-wide ("TCIL") certificate published
// by a manager or admin. It has no review lifecycle.
type ReferenceCertificate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	ValidFrom time.Time `gorm:"type:date;not null"`
	ValidTill time.Time `gorm:"type:date;not null"`
	CreatedBy uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time

	Upload *Upload `gorm:"foreignKey:ReferenceCertificateID"`
}

func (ReferenceCertificate) TableName() string { return "reference_certificates" }

func (r *ReferenceCertificate) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
