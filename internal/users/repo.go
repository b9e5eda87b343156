package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

// Repository exposes owner account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an owners repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// Create inserts a new owner. A reused mobile maps to CONFLICT.
func (r *Repository) Create(ctx context.Context, owner *models.Owner) error {
	if err := r.db.WithContext(ctx).Create(owner).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "mobile number already registered")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create owner")
	}
	return nil
}

// FindByMobile retrieves the owner registered with mobile, or nil.
func (r *Repository) FindByMobile(ctx context.Context, mobile string) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find owner")
	}
	return &owner, nil
}

// FindByID loads an owner by UUID, or nil when the account is gone.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find owner")
	}
	return &owner, nil
}

// UpdateLastLogin refreshes the owner's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Owner{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	return nil
}

// UpdatePasswordHash stores a re-encoded password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Owner{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password hash")
	}
	return nil
}

// Update applies patch to the owner row and returns the stored result.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*models.Owner, error) {
	if len(patch) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Owner{}).Where("id = ?", id).Updates(patch)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update owner")
		}
	}
	owner, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
	}
	return owner, nil
}
