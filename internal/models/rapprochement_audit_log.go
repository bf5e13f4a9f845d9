package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionAuto      = "auto_match"
	AuditActionSuggest   = "suggest"
	AuditActionValidate  = "validate"
	AuditActionReject    = "reject"
	AuditActionSupersede = "supersede"
	AuditActionManual    = "manual_match"
)

type RapprochementAuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID         uuid.UUID `gorm:"type:uuid;index"`
	RapprochementID uuid.UUID `gorm:"type:uuid;index"`
	TransactionID   uuid.UUID `gorm:"type:uuid;index"`
	Action          string
	Reason          string
	CreatedAt       time.Time
}
