package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeExpense = "expense"
	TransactionTypeIncome  = "income"
)

const (
	TransactionStatusPending    = "pending"
	TransactionStatusSuggestion = "suggestion"
	TransactionStatusReconcilie = "reconcilie"
)

// Transaction is a bank-ledger movement imported from a statement.
// Rows are never deleted; only the status changes as matching progresses.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID       `gorm:"type:uuid;index" json:"owner_id"`
	TransactionDate time.Time       `gorm:"column:transaction_date;index" json:"transaction_date"`
	Label           string          `json:"label"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Type            string          `gorm:"index" json:"type"`
	Status          string          `gorm:"index" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}
