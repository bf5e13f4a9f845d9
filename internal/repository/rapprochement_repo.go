package repository

import (
	"context"
	"errors"
	"time"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RapprochementRepository struct {
	db *gorm.DB
}

func NewRapprochementRepository(db *gorm.DB) *RapprochementRepository {
	return &RapprochementRepository{db: db}
}

func (r *RapprochementRepository) Create(ctx context.Context, rap *models.Rapprochement) error {
	return r.db.WithContext(ctx).Create(rap).Error
}

// GetOwned fetches one rapprochement, enforcing ownership.
func (r *RapprochementRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Rapprochement, error) {
	var rap models.Rapprochement
	err := r.db.WithContext(ctx).First(&rap, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var count int64
		if cerr := r.db.WithContext(ctx).Model(&models.Rapprochement{}).Where("id = ?", id).Count(&count).Error; cerr != nil {
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
	return &rap, nil
}

// List returns the owner's rapprochements, optionally filtered by statut
// and type, newest first.
func (r *RapprochementRepository) List(ctx context.Context, ownerID uuid.UUID, statut, typ string) ([]models.Rapprochement, error) {
	query := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id ASC")
	if statut != "" {
		query = query.Where("statut = ?", statut)
	}
	if typ != "" {
		query = query.Where("type = ?", typ)
	}
	var raps []models.Rapprochement
	err := query.Find(&raps).Error
	return raps, err
}

// ListByOwner returns every rapprochement of the owner.
func (r *RapprochementRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Rapprochement, error) {
	return r.List(ctx, ownerID, "", "")
}

// HasValide reports whether the transaction already carries a valide link.
func (r *RapprochementRepository) HasValide(ctx context.Context, ownerID, transactionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Rapprochement{}).
		Where("owner_id = ? AND transaction_id = ? AND statut = ?", ownerID, transactionID, models.StatutValide).
		Count(&count).Error
	return count > 0, err
}

// SupersedeValide demotes any valide row of the transaction other than
// keepID to rejete. The statut predicate makes this a conditional write:
// under concurrent validations only rows still valide are touched, so the
// at-most-one-valide invariant holds without a table lock.
func (r *RapprochementRepository) SupersedeValide(ctx context.Context, ownerID, transactionID, keepID uuid.UUID) ([]uuid.UUID, error) {
	var superseded []models.Rapprochement
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND transaction_id = ? AND statut = ? AND id <> ?",
			ownerID, transactionID, models.StatutValide, keepID).
		Find(&superseded).Error
	if err != nil {
		return nil, err
	}
	if len(superseded) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(superseded))
	for _, s := range superseded {
		ids = append(ids, s.ID)
	}
	err = r.db.WithContext(ctx).Model(&models.Rapprochement{}).
		Where("owner_id = ? AND transaction_id = ? AND statut = ? AND id <> ?",
			ownerID, transactionID, models.StatutValide, keepID).
		Updates(map[string]interface{}{
			"statut":     models.StatutRejete,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetStatut transitions one owned row to the given statut.
func (r *RapprochementRepository) SetStatut(ctx context.Context, ownerID, id uuid.UUID, statut string) error {
	res := r.db.WithContext(ctx).Model(&models.Rapprochement{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"statut":     statut,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ExistsSuggestion reports whether an open suggestion already links the
// transaction to the facture. Keeps matcher reruns from stacking duplicates.
func (r *RapprochementRepository) ExistsSuggestion(ctx context.Context, ownerID, transactionID, factureID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Rapprochement{}).
		Where("owner_id = ? AND transaction_id = ? AND facture_id = ? AND statut = ?",
			ownerID, transactionID, factureID, models.StatutSuggestion).
		Count(&count).Error
	return count > 0, err
}

// CountAutoSince counts auto rapprochements created after the cutoff.
func (r *RapprochementRepository) CountAutoSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Rapprochement{}).
		Where("owner_id = ? AND type = ? AND created_at >= ?", ownerID, models.RapprochementTypeAuto, since).
		Count(&count).Error
	return count, err
}

// AppendAudit records one state-change action on the audit trail.
func (r *RapprochementRepository) AppendAudit(ctx context.Context, entry *models.RapprochementAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
