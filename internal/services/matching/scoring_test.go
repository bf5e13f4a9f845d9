package matching

import (
	"testing"
	"time"

	"finsoft-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(amount string, date string) *models.Transaction {
	return &models.Transaction{
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: day(date),
		Type:            models.TransactionTypeExpense,
	}
}

func facture(total string, date string) *models.Facture {
	return &models.Facture{
		TotalTTC:  decimal.RequireFromString(total),
		IssueDate: day(date),
	}
}

func TestScore(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name         string
		tx           *models.Transaction
		facture      *models.Facture
		wantEligible bool
		wantMin      int
		wantMax      int
	}{
		{
			name:         "exact amount one day apart scores high",
			tx:           tx("150.00", "2025-03-10"),
			facture:      facture("150.00", "2025-03-09"),
			wantEligible: true,
			wantMin:      90,
			wantMax:      100,
		},
		{
			name:         "same day same amount is a perfect score",
			tx:           tx("99.90", "2025-03-10"),
			facture:      facture("99.90", "2025-03-10"),
			wantEligible: true,
			wantMin:      100,
			wantMax:      100,
		},
		{
			name:         "amount difference beyond tolerance disqualifies",
			tx:           tx("150.00", "2025-03-10"),
			facture:      facture("160.00", "2025-03-09"),
			wantEligible: false,
		},
		{
			name:         "date beyond window disqualifies",
			tx:           tx("150.00", "2025-06-10"),
			facture:      facture("150.00", "2025-03-09"),
			wantEligible: false,
		},
		{
			name:         "cent rounding counts as exact",
			tx:           tx("150.01", "2025-03-10"),
			facture:      facture("150.00", "2025-03-10"),
			wantEligible: true,
			wantMin:      100,
			wantMax:      100,
		},
		{
			name:         "negative ledger amount matches by absolute value",
			tx:           tx("-150.00", "2025-03-10"),
			facture:      facture("150.00", "2025-03-09"),
			wantEligible: true,
			wantMin:      90,
			wantMax:      100,
		},
		{
			name:         "small amount drift within tolerance stays eligible",
			tx:           tx("151.50", "2025-03-10"),
			facture:      facture("150.00", "2025-03-10"),
			wantEligible: true,
			wantMin:      50,
			wantMax:      99,
		},
		{
			name:         "zero facture total only matches a zero transaction",
			tx:           tx("10.00", "2025-03-10"),
			facture:      facture("0.00", "2025-03-10"),
			wantEligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, eligible := Score(tt.tx, tt.facture, cfg)
			assert.Equal(t, tt.wantEligible, eligible)
			if tt.wantEligible {
				assert.GreaterOrEqual(t, score, tt.wantMin)
				assert.LessOrEqual(t, score, tt.wantMax)
			}
		})
	}
}

func TestScoreDateMonotonicity(t *testing.T) {
	cfg := DefaultConfig()
	f := facture("150.00", "2025-03-01")

	prev := 101
	for days := 0; days <= cfg.DateWindowDays; days += 5 {
		transaction := tx("150.00", "2025-03-01")
		transaction.TransactionDate = transaction.TransactionDate.AddDate(0, 0, days)
		score, eligible := Score(transaction, f, cfg)
		assert.True(t, eligible, "days=%d", days)
		assert.LessOrEqual(t, score, prev, "score must not increase as dates drift apart (days=%d)", days)
		prev = score
	}
}

func TestScoreAmountMonotonicity(t *testing.T) {
	cfg := DefaultConfig()
	f := facture("1000.00", "2025-03-01")

	amounts := []string{"1000.00", "1002.00", "1005.00", "1010.00", "1015.00", "1019.00"}
	prev := 101
	for _, a := range amounts {
		score, eligible := Score(tx(a, "2025-03-01"), f, cfg)
		assert.True(t, eligible, "amount=%s", a)
		assert.LessOrEqual(t, score, prev, "score must not increase as amounts drift apart (amount=%s)", a)
		prev = score
	}
}

func TestScoreClampedToRange(t *testing.T) {
	cfg := DefaultConfig()
	score, eligible := Score(tx("150.00", "2025-03-10"), facture("150.00", "2025-03-10"), cfg)
	assert.True(t, eligible)
	assert.LessOrEqual(t, score, 100)
	assert.GreaterOrEqual(t, score, 0)
}
