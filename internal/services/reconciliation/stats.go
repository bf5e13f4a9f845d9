package reconciliation

import (
	"context"
	"math"
	"time"

	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Stats is the dashboard rollup for one owner.
type Stats struct {
	Total             int `json:"total"`
	Reconciled        int `json:"reconciled"`
	WithSuggestion    int `json:"with_suggestion"`
	Unreconciled      int `json:"unreconciled"`
	PctReconciled     int `json:"pct_reconciled"`
	RecentAutoActions int `json:"recent_auto_actions"`
}

// Stats merges the owner's expense transactions and rapprochements in
// memory into dashboard counts. Read-only; results are cached briefly
// per owner and invalidated by any mutation.
func (s *Service) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	if cached, ok := s.stats.Get(ownerID.String()); ok {
		st := cached.(Stats)
		return &st, nil
	}

	txs, err := s.txs.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading expense transactions")
	}
	raps, err := s.raps.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading rapprochements")
	}

	valide := make(map[uuid.UUID]bool)
	suggested := make(map[uuid.UUID]bool)
	for _, rap := range raps {
		switch rap.Statut {
		case models.StatutValide:
			valide[rap.TransactionID] = true
		case models.StatutSuggestion:
			suggested[rap.TransactionID] = true
		}
	}

	st := Stats{Total: len(txs)}
	for _, tx := range txs {
		switch {
		case valide[tx.ID]:
			st.Reconciled++
		case suggested[tx.ID]:
			st.WithSuggestion++
		default:
			st.Unreconciled++
		}
	}
	if st.Total > 0 {
		st.PctReconciled = int(math.Round(100 * float64(st.Reconciled) / float64(st.Total)))
	}

	recent, err := s.raps.CountAutoSince(ctx, ownerID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, errors.Wrap(err, "counting recent auto matches")
	}
	st.RecentAutoActions = int(recent)

	s.stats.SetDefault(ownerID.String(), st)
	return &st, nil
}

// InvalidateStats drops the cached rollup for an owner.
func (s *Service) InvalidateStats(ownerID uuid.UUID) {
	s.stats.Delete(ownerID.String())
}
