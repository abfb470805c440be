package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// EmailTaken also counts deactivated accounts.
	EmailTaken(ctx context.Context, email string) (bool, error)
	ListByRoles(ctx context.Context, roles ...identity.Role) ([]model.User, error)
	// ListReports returns the active users whose manager_id is managerID.
	ListReports(ctx context.Context, managerID uuid.UUID) ([]model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateManager(ctx context.Context, id uuid.UUID, managerID *uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountByRole(ctx context.Context, role identity.Role) (int64, error)

	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) UserRepository
	DB() *gorm.DB
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) DB() *gorm.DB { return r.db }

func (r *userRepo) WithTx(tx *gorm.DB) UserRepository { return &userRepo{db: tx} }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	return r.db.WithContext(ctx).Omit("Manager").Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return &u, err
}

// FindByEmail matches case-insensitively; only active users can sign in.
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND active = ?", normalizeEmail(email), true).
		First(&u).Error
	return &u, err
}

func (r *userRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepo) ListByRoles(ctx context.Context, roles ...identity.Role) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role IN ? AND active = ?", roles, true).
		Order("name ASC, id ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListReports(ctx context.Context, managerID uuid.UUID) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND active = ?", managerID, true).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *userRepo) UpdateManager(ctx context.Context, id uuid.UUID, managerID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("manager_id", managerID).Error
}

func (r *userRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("active", active).Error
}

func (r *userRepo) CountByRole(ctx context.Context, role identity.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
