package matching_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"finsoft-reconciliation-backend/internal/models"
	"finsoft-reconciliation-backend/internal/services/matching"
	"finsoft-reconciliation-backend/internal/storetest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newEngine(store *storetest.Store, cfg matching.Config) *matching.Engine {
	return matching.NewEngine(cfg, store, store.Factures(), store.Raps(), store.Runs(), quietLogger())
}

func seedTransaction(store *storetest.Store, owner uuid.UUID, amount, date string) *models.Transaction {
	tx := &models.Transaction{
		ID:              uuid.New(),
		OwnerID:         owner,
		TransactionDate: day(date),
		Amount:          decimal.RequireFromString(amount),
		Type:            models.TransactionTypeExpense,
		Status:          models.TransactionStatusPending,
		CreatedAt:       time.Now(),
	}
	store.AddTransaction(tx)
	return tx
}

func seedFacture(store *storetest.Store, owner uuid.UUID, total, date string) *models.Facture {
	f := &models.Facture{
		ID:        uuid.New(),
		OwnerID:   owner,
		IssueDate: day(date),
		TotalTTC:  decimal.RequireFromString(total),
		CreatedAt: time.Now(),
	}
	store.AddFacture(f)
	return f
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLaunchAutoMatchesExactPair(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	tx := seedTransaction(store, owner, "150.00", "2025-03-10")
	seedFacture(store, owner, "150.00", "2025-03-09")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Auto)
	assert.Equal(t, 0, report.Suggestions)
	assert.Equal(t, 0, report.Skipped)

	raps := store.RapsFor(tx.ID)
	require.Len(t, raps, 1)
	assert.Equal(t, models.RapprochementTypeAuto, raps[0].Type)
	assert.Equal(t, models.StatutValide, raps[0].Statut)
	assert.GreaterOrEqual(t, raps[0].ConfidenceScore, 90)
	assert.Equal(t, models.TransactionStatusReconcilie, store.TransactionStatus(tx.ID))
}

func TestLaunchSkipsAmountBeyondTolerance(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	tx := seedTransaction(store, owner, "150.00", "2025-03-10")
	seedFacture(store, owner, "160.00", "2025-03-09")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Auto)
	assert.Equal(t, 0, report.Suggestions)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.RapsFor(tx.ID))
}

func TestLaunchThresholdBoundary(t *testing.T) {
	// Exact amount, 20 days apart: 0.7*100 + 0.3*(100*(1-20/60)) = 90,
	// right on the auto threshold. 22 days lands one point below.
	store := storetest.New()
	owner := uuid.New()
	onThreshold := seedTransaction(store, owner, "500.00", "2025-03-21")
	seedFacture(store, owner, "500.00", "2025-03-01")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, report.Auto)

	raps := store.RapsFor(onThreshold.ID)
	require.Len(t, raps, 1)
	assert.Equal(t, 90, raps[0].ConfidenceScore)
	assert.Equal(t, models.StatutValide, raps[0].Statut)

	store2 := storetest.New()
	belowThreshold := seedTransaction(store2, owner, "500.00", "2025-03-23")
	seedFacture(store2, owner, "500.00", "2025-03-01")

	report2, err := newEngine(store2, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, report2.Auto)
	assert.Equal(t, 1, report2.Suggestions)

	raps2 := store2.RapsFor(belowThreshold.ID)
	require.Len(t, raps2, 1)
	assert.Equal(t, 89, raps2[0].ConfidenceScore)
	assert.Equal(t, models.StatutSuggestion, raps2[0].Statut)
	assert.Equal(t, models.RapprochementTypeSuggestion, raps2[0].Type)
}

func TestLaunchIsIdempotent(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	autoTx := seedTransaction(store, owner, "150.00", "2025-03-10")
	seedFacture(store, owner, "150.00", "2025-03-09")
	suggestTx := seedTransaction(store, owner, "500.00", "2025-04-23")
	seedFacture(store, owner, "500.00", "2025-04-01")

	engine := newEngine(store, matching.DefaultConfig())

	first, err := engine.Launch(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Auto)
	assert.Equal(t, 1, first.Suggestions)

	second, err := engine.Launch(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Auto, "nothing new should auto-match on rerun")

	assert.Equal(t, 1, store.ValideCount(autoTx.ID))
	assert.Len(t, store.RapsFor(autoTx.ID), 1)
	assert.Len(t, store.RapsFor(suggestTx.ID), 1, "rerun must not duplicate the suggestion")
}

func TestLaunchConsumesFactureOncePerRun(t *testing.T) {
	// Two transactions competing for one facture: only the first gets the
	// auto match, the second has no candidate left.
	store := storetest.New()
	owner := uuid.New()
	seedTransaction(store, owner, "150.00", "2025-03-10")
	seedTransaction(store, owner, "150.00", "2025-03-11")
	seedFacture(store, owner, "150.00", "2025-03-10")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Auto)
	assert.Equal(t, 1, report.Skipped)
}

func TestLaunchTieBreaksDeterministically(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	tx := seedTransaction(store, owner, "150.00", "2025-03-10")
	f1 := seedFacture(store, owner, "150.00", "2025-03-08")
	f2 := seedFacture(store, owner, "150.00", "2025-03-08")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, report.Auto)

	wantID := f1.ID
	if f2.ID.String() < f1.ID.String() {
		wantID = f2.ID
	}
	raps := store.RapsFor(tx.ID)
	require.Len(t, raps, 1)
	assert.Equal(t, wantID, raps[0].FactureID, "equal score and date must break ties by lowest facture id")
}

func TestLaunchToleratesPerItemFailure(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	failing := seedTransaction(store, owner, "150.00", "2025-03-10")
	seedFacture(store, owner, "150.00", "2025-03-09")
	healthy := seedTransaction(store, owner, "200.00", "2025-03-15")
	seedFacture(store, owner, "200.00", "2025-03-14")

	store.FailRapCreateFor[failing.ID] = errors.New("insert failed")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err, "one bad item must not abort the batch")

	assert.Equal(t, 1, report.Auto)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, failing.ID, report.Errors[0].TransactionID)
	assert.Len(t, store.RapsFor(healthy.ID), 1)
}

func TestLaunchAbortsWhenTransactionsUnavailable(t *testing.T) {
	store := storetest.New()
	store.FailListTransactions = errors.New("connection refused")

	_, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestLaunchIsOwnerScoped(t *testing.T) {
	store := storetest.New()
	ownerA := uuid.New()
	ownerB := uuid.New()
	seedTransaction(store, ownerA, "150.00", "2025-03-10")
	bTx := seedTransaction(store, ownerB, "150.00", "2025-03-10")
	seedFacture(store, ownerB, "150.00", "2025-03-09")

	report, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), ownerA)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Auto, "owner A has no factures, owner B's must not leak")
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.RapsFor(bTx.ID), "owner B's transactions must stay untouched")
}

func TestLaunchRecordsRun(t *testing.T) {
	store := storetest.New()
	owner := uuid.New()
	seedTransaction(store, owner, "150.00", "2025-03-10")
	seedFacture(store, owner, "150.00", "2025-03-09")

	_, err := newEngine(store, matching.DefaultConfig()).Launch(context.Background(), owner)
	require.NoError(t, err)

	runs, err := store.Runs().ListRecent(context.Background(), owner, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 1, runs[0].AutoCount)
	assert.Equal(t, 1, runs[0].TransactionsSeen)
	require.NotNil(t, runs[0].CompletedAt)
}
