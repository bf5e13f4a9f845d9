package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Facture is a billing document produced by the invoice-ingestion pipeline.
// Immutable once created except for administrative edits.
type Facture struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;index" json:"owner_id"`
	FactureNumber string          `gorm:"index" json:"facture_number"`
	ClientName    string          `json:"client_name"`
	IssueDate     time.Time       `gorm:"index" json:"issue_date"`
	TotalTTC      decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_ttc"`
	CreatedAt     time.Time       `json:"created_at"`
}
