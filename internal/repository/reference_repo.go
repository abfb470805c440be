package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ishpreet160/CertFlow/internal/model"
)

type ReferenceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ReferenceCertificate, error)
	List(ctx context.Context) ([]model.ReferenceCertificate, error)

	CreateTx(tx *gorm.DB, rc *model.ReferenceCertificate) error
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.ReferenceCertificate, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) (int64, error)

	DB() *gorm.DB
}

type referenceRepo struct{ db *gorm.DB }

func NewReferenceRepository(db *gorm.DB) ReferenceRepository { return &referenceRepo{db: db} }

func (r *referenceRepo) DB() *gorm.DB { return r.db }

func (r *referenceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ReferenceCertificate, error) {
	var rc model.ReferenceCertificate
	err := r.db.WithContext(ctx).Preload("Upload").Where("id = ?", id).First(&rc).Error
	return &rc, err
}

func (r *referenceRepo) List(ctx context.Context) ([]model.ReferenceCertificate, error) {
	var list []model.ReferenceCertificate
	err := r.db.WithContext(ctx).Preload("Upload").Order("created_at DESC, id ASC").Find(&list).Error
	return list, err
}

func (r *referenceRepo) CreateTx(tx *gorm.DB, rc *model.ReferenceCertificate) error {
	return tx.Omit(clause.Associations).Create(rc).Error
}

func (r *referenceRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.ReferenceCertificate, error) {
	var rc model.ReferenceCertificate
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rc).Error
	return &rc, err
}

func (r *referenceRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := tx.Where("id = ?", id).Delete(&model.ReferenceCertificate{})
	return res.RowsAffected, res.Error
}
