package repository

import (
	"context"
	"errors"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FactureRepository struct {
	db *gorm.DB
}

func NewFactureRepository(db *gorm.DB) *FactureRepository {
	return &FactureRepository{db: db}
}

func (r *FactureRepository) Create(ctx context.Context, f *models.Facture) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// GetOwned fetches one facture, enforcing ownership.
func (r *FactureRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Facture, error) {
	var f models.Facture
	err := r.db.WithContext(ctx).First(&f, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var count int64
		if cerr := r.db.WithContext(ctx).Model(&models.Facture{}).Where("id = ?", id).Count(&count).Error; cerr != nil {
			return nil, cerr
		}
		if count > 0 {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListUnconsumed returns the owner's factures not already consumed by a
// valide rapprochement. Suggestions do not consume a facture.
func (r *FactureRepository) ListUnconsumed(ctx context.Context, ownerID uuid.UUID) ([]models.Facture, error) {
	var factures []models.Facture
	sub := r.db.Model(&models.Rapprochement{}).
		Select("facture_id").
		Where("owner_id = ? AND statut = ?", ownerID, models.StatutValide)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("id NOT IN (?)", sub).
		Order("issue_date ASC, id ASC").
		Find(&factures).Error
	return factures, err
}

// GetByIDs fetches a batch of factures by id for one owner.
func (r *FactureRepository) GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Facture, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var factures []models.Facture
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&factures).Error
	return factures, err
}
