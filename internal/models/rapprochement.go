package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RapprochementTypeAuto       = "auto"
	RapprochementTypeSuggestion = "suggestion"
	RapprochementTypeManuel     = "manuel"
)

const (
	StatutSuggestion = "suggestion"
	StatutValide     = "valide"
	StatutRejete     = "rejete"
)

// Rapprochement links a bank transaction to the facture it pays.
// At most one row per transaction may hold statut=valide; rejected rows
// are retained as an audit trail.
type Rapprochement struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID      `gorm:"type:uuid;index" json:"owner_id"`
	TransactionID   uuid.UUID      `gorm:"type:uuid;index" json:"transaction_id"`
	FactureID       uuid.UUID      `gorm:"type:uuid;index" json:"facture_id"`
	Type            string         `gorm:"index" json:"type"`
	Statut          string         `gorm:"index" json:"statut"`
	ConfidenceScore int            `json:"confidence_score"`
	MatchDetails    datatypes.JSON `json:"match_details,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ValidStatut reports whether s is a known statut value.
func ValidStatut(s string) bool {
	return s == StatutSuggestion || s == StatutValide || s == StatutRejete
}

// ValidType reports whether t is a known rapprochement type.
func ValidType(t string) bool {
	return t == RapprochementTypeAuto || t == RapprochementTypeSuggestion || t == RapprochementTypeManuel
}
