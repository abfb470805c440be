package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/lifecycle"
)

// Certificate is a project-experience certificate submitted by an employee
// (or manager) for review. Status transitions are governed by package
// lifecycle; once approved no column changes again.
type Certificate struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Title              string              `gorm:"type:varchar(200);not null"`
	Client             string              `gorm:"type:varchar(100);not null"`
	NatureOfProject    string              `gorm:"type:varchar(100)"`
	SubNatureOfProject string              `gorm:"type:varchar(100)"`
	StartDate          *time.Time          `gorm:"type:date"`
	GoLiveDate         *time.Time          `gorm:"type:date"`
	EndDate            *time.Time          `gorm:"type:date"`
	WarrantyYears      string              `gorm:"type:varchar(20)"`
	OMYears            string              `gorm:"column:om_years;type:varchar(20)"`
	Value              decimal.NullDecimal `gorm:"type:decimal(14,2)"`
	ProjectStatus      string              `gorm:"type:varchar(50)"`
	TCILContactPerson  string              `gorm:"column:tcil_contact_person;type:varchar(100)"`
	Technologies       string              `gorm:"type:varchar(500)"`
	ConcernedHOD       string              `gorm:"column:concerned_hod;type:varchar(100)"`
	ClientContactName  string              `gorm:"type:varchar(100)"`
	ClientContactPhone string              `gorm:"type:varchar(20)"`
	ClientContactEmail string              `gorm:"type:varchar(120)"`

	Filename  string           `gorm:"type:varchar(256);not null"`
	Status    lifecycle.Status `gorm:"type:varchar(20);index;not null;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Owner  *User   `gorm:"foreignKey:UserID"`
	Upload *Upload `gorm:"foreignKey:CertificateID"`
}

func (c *Certificate) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = lifecycle.Initial
	}
	return nil
}
