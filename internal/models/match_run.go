package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchRun records one invocation of the matching engine for an owner.
type MatchRun struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID          uuid.UUID  `gorm:"type:uuid;index" json:"owner_id"`
	AutoCount        int        `json:"auto_count"`
	SuggestionCount  int        `json:"suggestion_count"`
	SkippedCount     int        `json:"skipped_count"`
	ErrorCount       int        `json:"error_count"`
	TransactionsSeen int        `json:"transactions_seen"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
