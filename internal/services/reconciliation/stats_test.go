package reconciliation_test

import (
	"context"
	"testing"

	"finsoft-reconciliation-backend/internal/models"
	"finsoft-reconciliation-backend/internal/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRollup(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()

	// 10 expense transactions: 6 valide, 2 with a suggestion, 2 unmatched.
	for i := 0; i < 10; i++ {
		tx := seedTransaction(store, owner, "100.00")
		f := seedFacture(store, owner, "100.00")
		switch {
		case i < 6:
			seedRapprochement(t, store, owner, tx.ID, f.ID, models.RapprochementTypeAuto, models.StatutValide)
		case i < 8:
			seedRapprochement(t, store, owner, tx.ID, f.ID, models.RapprochementTypeSuggestion, models.StatutSuggestion)
		}
	}

	stats, err := newService(store).Stats(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 6, stats.Reconciled)
	assert.Equal(t, 2, stats.WithSuggestion)
	assert.Equal(t, 2, stats.Unreconciled)
	assert.Equal(t, 60, stats.PctReconciled)
	assert.Equal(t, 6, stats.RecentAutoActions, "auto rows created just now fall in the 7-day window")
}

func TestStatsEmptyOwner(t *testing.T) {
	stats, err := newService(storetest.New()).Stats(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.PctReconciled, "percentage must be 0 when there are no transactions")
	assert.Equal(t, 0, stats.Unreconciled)
}

func TestStatsIgnoresRejected(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	tx := seedTransaction(store, owner, "100.00")
	f := seedFacture(store, owner, "100.00")
	seedRapprochement(t, store, owner, tx.ID, f.ID, models.RapprochementTypeSuggestion, models.StatutRejete)

	stats, err := newService(store).Stats(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Reconciled)
	assert.Equal(t, 0, stats.WithSuggestion)
	assert.Equal(t, 1, stats.Unreconciled)
}

func TestStatsCacheInvalidation(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	svc := newService(store)

	stats, err := svc.Stats(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	tx := seedTransaction(store, owner, "100.00")
	f := seedFacture(store, owner, "100.00")
	rap := seedRapprochement(t, store, owner, tx.ID, f.ID, models.RapprochementTypeSuggestion, models.StatutSuggestion)

	// Cached rollup is still served until a mutation invalidates it.
	stats, err = svc.Stats(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	_, err = svc.Validate(context.Background(), rap.ID, owner)
	require.NoError(t, err)

	stats, err = svc.Stats(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Reconciled)
}
