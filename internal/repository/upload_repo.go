package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/model"
)

type UploadRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Upload, error)
	Count(ctx context.Context) (int64, error)

	CreateTx(tx *gorm.DB, u *model.Upload) error
	FindByCertificateTx(tx *gorm.DB, certificateID uuid.UUID) (*model.Upload, error)
	FindByReferenceTx(tx *gorm.DB, referenceID uuid.UUID) (*model.Upload, error)
	// AttachCertificateTx links an unattached upload to a certificate.
	AttachCertificateTx(tx *gorm.DB, id, certificateID uuid.UUID) (int64, error)
	AttachReferenceTx(tx *gorm.DB, id, referenceID uuid.UUID) (int64, error)
	ReplaceBlobTx(tx *gorm.DB, id uuid.UUID, filename, blobRef, contentType string, size int64) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

type uploadRepo struct{ db *gorm.DB }

func NewUploadRepository(db *gorm.DB) UploadRepository { return &uploadRepo{db: db} }

func (r *uploadRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Upload, error) {
	var u model.Upload
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return &u, err
}

func (r *uploadRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Upload{}).Count(&n).Error
	return n, err
}

func (r *uploadRepo) CreateTx(tx *gorm.DB, u *model.Upload) error {
	return tx.Create(u).Error
}

func (r *uploadRepo) FindByCertificateTx(tx *gorm.DB, certificateID uuid.UUID) (*model.Upload, error) {
	var u model.Upload
	err := tx.Where("certificate_id = ?", certificateID).First(&u).Error
	return &u, err
}

func (r *uploadRepo) FindByReferenceTx(tx *gorm.DB, referenceID uuid.UUID) (*model.Upload, error) {
	var u model.Upload
	err := tx.Where("reference_certificate_id = ?", referenceID).First(&u).Error
	return &u, err
}

func (r *uploadRepo) AttachCertificateTx(tx *gorm.DB, id, certificateID uuid.UUID) (int64, error) {
	res := tx.Model(&model.Upload{}).
		Where("id = ? AND certificate_id IS NULL AND reference_certificate_id IS NULL", id).
		Update("certificate_id", certificateID)
	return res.RowsAffected, res.Error
}

func (r *uploadRepo) AttachReferenceTx(tx *gorm.DB, id, referenceID uuid.UUID) (int64, error) {
	res := tx.Model(&model.Upload{}).
		Where("id = ? AND certificate_id IS NULL AND reference_certificate_id IS NULL", id).
		Update("reference_certificate_id", referenceID)
	return res.RowsAffected, res.Error
}

func (r *uploadRepo) ReplaceBlobTx(tx *gorm.DB, id uuid.UUID, filename, blobRef, contentType string, size int64) error {
	return tx.Model(&model.Upload{}).Where("id = ?", id).Updates(map[string]any{
		"filename":     filename,
		"blob_ref":     blobRef,
		"content_type": contentType,
		"size":         size,
	}).Error
}

func (r *uploadRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.Upload{}).Error
}
