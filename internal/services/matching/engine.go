// Package matching implements the reconciliation matcher: a pure scoring
// function plus the batch engine that pairs an owner's unreconciled bank
// transactions with facture candidates.
package matching

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TransactionSource supplies the transactions to reconcile.
type TransactionSource interface {
	ListUnreconciledExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error)
	SetStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error
}

// FactureSource supplies candidate factures.
type FactureSource interface {
	ListUnconsumed(ctx context.Context, ownerID uuid.UUID) ([]models.Facture, error)
}

// RapprochementSink persists match decisions.
type RapprochementSink interface {
	Create(ctx context.Context, rap *models.Rapprochement) error
	HasValide(ctx context.Context, ownerID, transactionID uuid.UUID) (bool, error)
	ExistsSuggestion(ctx context.Context, ownerID, transactionID, factureID uuid.UUID) (bool, error)
	AppendAudit(ctx context.Context, entry *models.RapprochementAuditLog) error
}

// RunRecorder tracks matcher invocations.
type RunRecorder interface {
	Create(ctx context.Context, run *models.MatchRun) error
	Complete(ctx context.Context, run *models.MatchRun) error
}

// ItemError records a single transaction whose matching failed without
// aborting the batch.
type ItemError struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

// Report aggregates the outcome of one matching run.
type Report struct {
	Auto        int         `json:"auto"`
	Suggestions int         `json:"suggestions"`
	Skipped     int         `json:"skipped"`
	Errors      []ItemError `json:"errors,omitempty"`
}

type Engine struct {
	cfg          Config
	transactions TransactionSource
	factures     FactureSource
	sink         RapprochementSink
	runs         RunRecorder
	log          *logrus.Logger
}

func NewEngine(cfg Config, transactions TransactionSource, factures FactureSource, sink RapprochementSink, runs RunRecorder, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		cfg:          cfg,
		transactions: transactions,
		factures:     factures,
		sink:         sink,
		runs:         runs,
		log:          log,
	}
}

type candidate struct {
	facture   *models.Facture
	score     int
	breakdown ScoreBreakdown
}

// Launch scans the owner's unreconciled expense transactions, scores them
// against the unconsumed factures and persists auto matches and
// suggestions. Existing valide links are never overwritten, so rerunning
// is idempotent. A failure on one transaction is recorded and the batch
// continues; only a failure to load either input set aborts the run.
func (e *Engine) Launch(ctx context.Context, ownerID uuid.UUID) (*Report, error) {
	run := &models.MatchRun{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    "processing",
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	if e.runs != nil {
		if err := e.runs.Create(ctx, run); err != nil {
			e.log.WithError(err).WithField("owner_id", ownerID).Warn("could not record match run")
		}
	}

	txs, err := e.transactions.ListUnreconciledExpenses(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading unreconciled transactions")
	}
	factures, err := e.factures.ListUnconsumed(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading candidate factures")
	}

	report := &Report{}
	consumed := make(map[uuid.UUID]bool)

	for i := range txs {
		tx := &txs[i]
		if err := e.matchOne(ctx, tx, factures, consumed, report); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"owner_id":       ownerID,
				"transaction_id": tx.ID,
			}).Warn("matching failed for transaction, skipping")
			report.Errors = append(report.Errors, ItemError{TransactionID: tx.ID, Reason: err.Error()})
		}
	}

	run.AutoCount = report.Auto
	run.SuggestionCount = report.Suggestions
	run.SkippedCount = report.Skipped
	run.ErrorCount = len(report.Errors)
	run.TransactionsSeen = len(txs)
	if e.runs != nil {
		if err := e.runs.Complete(ctx, run); err != nil {
			e.log.WithError(err).WithField("owner_id", ownerID).Warn("could not complete match run")
		}
	}

	e.log.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"auto":        report.Auto,
		"suggestions": report.Suggestions,
		"skipped":     report.Skipped,
		"errors":      len(report.Errors),
	}).Info("matching run finished")

	return report, nil
}

func (e *Engine) matchOne(ctx context.Context, tx *models.Transaction, factures []models.Facture, consumed map[uuid.UUID]bool, report *Report) error {
	best := e.selectBest(tx, factures, consumed)
	if best == nil {
		report.Skipped++
		return nil
	}

	switch {
	case best.score >= e.cfg.AutoThreshold:
		// Revalidate right before writing: a concurrent run or a manual
		// validation may have claimed the transaction since loading.
		hasValide, err := e.sink.HasValide(ctx, tx.OwnerID, tx.ID)
		if err != nil {
			return apperrors.NewTransient("valide lookup", err)
		}
		if hasValide {
			report.Skipped++
			return nil
		}
		if err := e.createMatch(ctx, tx, best, models.RapprochementTypeAuto, models.StatutValide); err != nil {
			return err
		}
		consumed[best.facture.ID] = true
		report.Auto++
		if err := e.transactions.SetStatus(ctx, tx.OwnerID, tx.ID, models.TransactionStatusReconcilie); err != nil {
			e.log.WithError(err).WithField("transaction_id", tx.ID).Warn("could not update transaction status")
		}

	case best.score >= e.cfg.SuggestionThreshold:
		exists, err := e.sink.ExistsSuggestion(ctx, tx.OwnerID, tx.ID, best.facture.ID)
		if err != nil {
			return apperrors.NewTransient("suggestion lookup", err)
		}
		if !exists {
			if err := e.createMatch(ctx, tx, best, models.RapprochementTypeSuggestion, models.StatutSuggestion); err != nil {
				return err
			}
		}
		report.Suggestions++
		if err := e.transactions.SetStatus(ctx, tx.OwnerID, tx.ID, models.TransactionStatusSuggestion); err != nil {
			e.log.WithError(err).WithField("transaction_id", tx.ID).Warn("could not update transaction status")
		}

	default:
		report.Skipped++
	}
	return nil
}

// selectBest returns the highest-scoring eligible facture, or nil when
// none qualifies. Ties break by closest date, then lowest facture id, so
// a rerun over the same data picks the same candidate.
func (e *Engine) selectBest(tx *models.Transaction, factures []models.Facture, consumed map[uuid.UUID]bool) *candidate {
	var candidates []candidate
	for i := range factures {
		f := &factures[i]
		if consumed[f.ID] {
			continue
		}
		score, bd, ok := scoreWithBreakdown(tx, f, e.cfg)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{facture: f, score: score, breakdown: bd})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		di := dateDistanceDays(tx.TransactionDate, candidates[i].facture.IssueDate)
		dj := dateDistanceDays(tx.TransactionDate, candidates[j].facture.IssueDate)
		if di != dj {
			return di < dj
		}
		return candidates[i].facture.ID.String() < candidates[j].facture.ID.String()
	})
	return &candidates[0]
}

func (e *Engine) createMatch(ctx context.Context, tx *models.Transaction, c *candidate, typ, statut string) error {
	details, _ := json.Marshal(c.breakdown)
	rap := &models.Rapprochement{
		ID:              uuid.New(),
		OwnerID:         tx.OwnerID,
		TransactionID:   tx.ID,
		FactureID:       c.facture.ID,
		Type:            typ,
		Statut:          statut,
		ConfidenceScore: c.score,
		MatchDetails:    details,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := e.sink.Create(ctx, rap); err != nil {
		return apperrors.NewTransient("rapprochement insert", err)
	}

	action := models.AuditActionSuggest
	if statut == models.StatutValide {
		action = models.AuditActionAuto
	}
	audit := &models.RapprochementAuditLog{
		ID:              uuid.New(),
		OwnerID:         tx.OwnerID,
		RapprochementID: rap.ID,
		TransactionID:   tx.ID,
		Action:          action,
		CreatedAt:       time.Now(),
	}
	if err := e.sink.AppendAudit(ctx, audit); err != nil {
		e.log.WithError(err).WithField("rapprochement_id", rap.ID).Warn("could not append audit entry")
	}
	return nil
}
