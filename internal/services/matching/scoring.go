package matching

import (
	"math"
	"time"

	"finsoft-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ScoreBreakdown carries the components of one scored pair, persisted as
// match details so a reviewer can see why a link was proposed.
type ScoreBreakdown struct {
	AmountScore float64 `json:"amount_score"`
	DateScore   float64 `json:"date_score"`
	FinalScore  int     `json:"final_score"`
	AmountDiff  string  `json:"amount_diff"`
	DaysApart   float64 `json:"days_apart"`
}

// Score computes the match confidence between a transaction and a facture
// candidate. Returns the score in [0,100] and whether the pair is eligible
// at all. Pure function, no side effects.
//
// A pair is disqualified when the relative amount difference exceeds
// cfg.AmountTolerance or the dates are further apart than
// cfg.DateWindowDays. Within bounds, both components decay linearly and
// are combined with cfg weights, amount dominating.
func Score(tx *models.Transaction, facture *models.Facture, cfg Config) (int, bool) {
	score, _, ok := scoreWithBreakdown(tx, facture, cfg)
	return score, ok
}

func scoreWithBreakdown(tx *models.Transaction, facture *models.Facture, cfg Config) (int, ScoreBreakdown, bool) {
	var bd ScoreBreakdown

	txAmount := tx.Amount.Abs()
	total := facture.TotalTTC.Abs()
	diff := txAmount.Sub(total).Abs()
	bd.AmountDiff = diff.StringFixed(2)

	epsilon := decimal.NewFromFloat(cfg.AmountEpsilon)

	var amountScore float64
	switch {
	case diff.LessThanOrEqual(epsilon):
		amountScore = 100
	case total.IsZero():
		// Zero-total facture can only match on the epsilon path above.
		return 0, bd, false
	default:
		relDiff, _ := diff.Div(total).Float64()
		if relDiff > cfg.AmountTolerance {
			return 0, bd, false
		}
		amountScore = 100 * (1 - relDiff/cfg.AmountTolerance)
	}
	bd.AmountScore = amountScore

	days := dateDistanceDays(tx.TransactionDate, facture.IssueDate)
	bd.DaysApart = days
	if days > float64(cfg.DateWindowDays) {
		return 0, bd, false
	}
	dateScore := 100 * (1 - days/float64(cfg.DateWindowDays))
	bd.DateScore = dateScore

	final := cfg.AmountWeight*amountScore + cfg.DateWeight*dateScore
	bd.FinalScore = clampScore(int(math.Round(final)))
	return bd.FinalScore, bd, true
}

func dateDistanceDays(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
