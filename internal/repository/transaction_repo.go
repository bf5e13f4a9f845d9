package repository

import (
	"context"
	"errors"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a single bank transaction row.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetOwned fetches one transaction, enforcing ownership. A row that exists
// under a different owner yields ErrUnauthorized, not ErrNotFound.
func (r *TransactionRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var count int64
		if cerr := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Count(&count).Error; cerr != nil {
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
	return &tx, nil
}

// ListExpenses returns all expense transactions for an owner.
func (r *TransactionRepository) ListExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND type = ?", ownerID, models.TransactionTypeExpense).
		Order("transaction_date ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// ListUnreconciledExpenses returns the owner's expense transactions that
// have no valide rapprochement yet.
func (r *TransactionRepository) ListUnreconciledExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	sub := r.db.Model(&models.Rapprochement{}).
		Select("transaction_id").
		Where("owner_id = ? AND statut = ?", ownerID, models.StatutValide)
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND type = ?", ownerID, models.TransactionTypeExpense).
		Where("id NOT IN (?)", sub).
		Order("transaction_date ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// SetStatus transitions one owned transaction to the given status.
func (r *TransactionRepository) SetStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetByIDs fetches a batch of transactions by id for one owner.
func (r *TransactionRepository) GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&txs).Error
	return txs, err
}
