package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/model"
)

// CertificateFilter narrows a listing. A nil OwnerIDs means every owner; an
// empty non-nil slice matches nothing.
type CertificateFilter struct {
	OwnerIDs []uuid.UUID
	Status   *lifecycle.Status
}

// StatusCounts is the per-status tally used by the dashboard.
type StatusCounts map[lifecycle.Status]int64

type CertificateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error)
	List(ctx context.Context, filter CertificateFilter) ([]model.Certificate, error)
	CountByStatus(ctx context.Context, ownerIDs []uuid.UUID) (StatusCounts, error)

	// Used inside transactions: callers pass the tx instance
	CreateTx(tx *gorm.DB, c *model.Certificate) error
	// FindForUpdateTx reads the row with SELECT ... FOR UPDATE.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Certificate, error)
	// UpdateTx writes fields only if the row is still in status from and
	// reports the number of rows affected.
	UpdateTx(tx *gorm.DB, id uuid.UUID, from lifecycle.Status, fields map[string]any) (int64, error)
	// DeleteTx removes the row only if it is still in status from.
	DeleteTx(tx *gorm.DB, id uuid.UUID, from lifecycle.Status) (int64, error)

	DB() *gorm.DB
}

type certificateRepo struct{ db *gorm.DB }

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepo{db: db}
}

func (r *certificateRepo) DB() *gorm.DB { return r.db }

func (r *certificateRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	var c model.Certificate
	err := r.db.WithContext(ctx).
		Preload("Upload").
		Preload("Owner").
		Where("id = ?", id).
		First(&c).Error
	return &c, err
}

func (r *certificateRepo) List(ctx context.Context, filter CertificateFilter) ([]model.Certificate, error) {
	var certs []model.Certificate
	if filter.OwnerIDs != nil && len(filter.OwnerIDs) == 0 {
		return certs, nil
	}
	q := r.db.WithContext(ctx).Model(&model.Certificate{}).Preload("Owner")
	if filter.OwnerIDs != nil {
		q = q.Where("user_id IN ?", filter.OwnerIDs)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	err := q.Order("created_at DESC, id ASC").Find(&certs).Error
	return certs, err
}

func (r *certificateRepo) CountByStatus(ctx context.Context, ownerIDs []uuid.UUID) (StatusCounts, error) {
	counts := StatusCounts{}
	if ownerIDs != nil && len(ownerIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		Status lifecycle.Status
		N      int64
	}
	q := r.db.WithContext(ctx).Model(&model.Certificate{}).Select("status, COUNT(*) AS n")
	if ownerIDs != nil {
		q = q.Where("user_id IN ?", ownerIDs)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func (r *certificateRepo) CreateTx(tx *gorm.DB, c *model.Certificate) error {
	return tx.Omit(clause.Associations).Create(c).Error
}

func (r *certificateRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Certificate, error) {
	var c model.Certificate
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	return &c, err
}

func (r *certificateRepo) UpdateTx(tx *gorm.DB, id uuid.UUID, from lifecycle.Status, fields map[string]any) (int64, error) {
	res := tx.Model(&model.Certificate{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *certificateRepo) DeleteTx(tx *gorm.DB, id uuid.UUID, from lifecycle.Status) (int64, error) {
	res := tx.Where("id = ? AND status = ?", id, from).Delete(&model.Certificate{})
	return res.RowsAffected, res.Error
}
