package repository

import (
	"context"
	"time"

	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRunRepository struct {
	db *gorm.DB
}

func NewMatchRunRepository(db *gorm.DB) *MatchRunRepository {
	return &MatchRunRepository{db: db}
}

func (r *MatchRunRepository) Create(ctx context.Context, run *models.MatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Complete stores the final counts of a finished run.
func (r *MatchRunRepository) Complete(ctx context.Context, run *models.MatchRun) error {
	now := time.Now()
	run.CompletedAt = &now
	run.Status = "completed"
	return r.db.WithContext(ctx).Model(&models.MatchRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"auto_count":        run.AutoCount,
			"suggestion_count":  run.SuggestionCount,
			"skipped_count":     run.SkippedCount,
			"error_count":       run.ErrorCount,
			"transactions_seen": run.TransactionsSeen,
			"status":            run.Status,
			"completed_at":      run.CompletedAt,
		}).Error
}

// ListRecent returns the owner's latest runs, newest first.
func (r *MatchRunRepository) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.MatchRun
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
