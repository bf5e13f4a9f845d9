// Package reconciliation manages the lifecycle of rapprochement records:
// validation, rejection, manual links and the dashboard stats rollup.
package reconciliation

import (
	"context"
	"time"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RapprochementStore is the persistence surface the service needs.
type RapprochementStore interface {
	Create(ctx context.Context, rap *models.Rapprochement) error
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Rapprochement, error)
	List(ctx context.Context, ownerID uuid.UUID, statut, typ string) ([]models.Rapprochement, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Rapprochement, error)
	SetStatut(ctx context.Context, ownerID, id uuid.UUID, statut string) error
	SupersedeValide(ctx context.Context, ownerID, transactionID, keepID uuid.UUID) ([]uuid.UUID, error)
	HasValide(ctx context.Context, ownerID, transactionID uuid.UUID) (bool, error)
	CountAutoSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error)
	AppendAudit(ctx context.Context, entry *models.RapprochementAuditLog) error
}

// TransactionStore is the transaction surface the service needs.
type TransactionStore interface {
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Transaction, error)
	ListExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error)
	GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error)
	SetStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error
}

// FactureStore is the facture surface the service needs.
type FactureStore interface {
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Facture, error)
	GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Facture, error)
}

const statsCacheTTL = 30 * time.Second

type Service struct {
	raps     RapprochementStore
	txs      TransactionStore
	factures FactureStore
	stats    *gocache.Cache
	log      *logrus.Logger
}

func NewService(raps RapprochementStore, txs TransactionStore, factures FactureStore, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		raps:     raps,
		txs:      txs,
		factures: factures,
		stats:    gocache.New(statsCacheTTL, 2*statsCacheTTL),
		log:      log,
	}
}

// Validate transitions a rapprochement to valide. Any other valide row
// for the same transaction is demoted to rejete first, keeping at most
// one valide link per transaction.
func (s *Service) Validate(ctx context.Context, id, ownerID uuid.UUID) (*models.Rapprochement, error) {
	rap, err := s.raps.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	superseded, err := s.raps.SupersedeValide(ctx, ownerID, rap.TransactionID, rap.ID)
	if err != nil {
		return nil, errors.Wrap(err, "superseding prior valide link")
	}
	for _, oldID := range superseded {
		s.audit(ctx, ownerID, oldID, rap.TransactionID, models.AuditActionSupersede, "superseded by validation of "+rap.ID.String())
	}

	if err := s.raps.SetStatut(ctx, ownerID, rap.ID, models.StatutValide); err != nil {
		return nil, errors.Wrap(err, "validating rapprochement")
	}
	rap.Statut = models.StatutValide
	s.audit(ctx, ownerID, rap.ID, rap.TransactionID, models.AuditActionValidate, "")

	if err := s.txs.SetStatus(ctx, ownerID, rap.TransactionID, models.TransactionStatusReconcilie); err != nil {
		s.log.WithError(err).WithField("transaction_id", rap.TransactionID).Warn("could not update transaction status")
	}

	s.InvalidateStats(ownerID)
	return rap, nil
}

// Reject transitions a rapprochement to rejete. The row is kept as an
// audit trail, never deleted.
func (s *Service) Reject(ctx context.Context, id, ownerID uuid.UUID) (*models.Rapprochement, error) {
	rap, err := s.raps.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.raps.SetStatut(ctx, ownerID, rap.ID, models.StatutRejete); err != nil {
		return nil, errors.Wrap(err, "rejecting rapprochement")
	}
	rap.Statut = models.StatutRejete
	s.audit(ctx, ownerID, rap.ID, rap.TransactionID, models.AuditActionReject, "")

	hasValide, err := s.raps.HasValide(ctx, ownerID, rap.TransactionID)
	if err == nil && !hasValide {
		if err := s.txs.SetStatus(ctx, ownerID, rap.TransactionID, models.TransactionStatusPending); err != nil {
			s.log.WithError(err).WithField("transaction_id", rap.TransactionID).Warn("could not update transaction status")
		}
	}

	s.InvalidateStats(ownerID)
	return rap, nil
}

// CreateManual links a transaction to a facture by explicit user action.
// The link is created valide with full confidence; the supersede rule
// applies as in Validate. Manual links may reuse a facture already
// consumed elsewhere (split payments are legitimate).
func (s *Service) CreateManual(ctx context.Context, transactionID, factureID, ownerID uuid.UUID) (*models.Rapprochement, error) {
	tx, err := s.txs.GetOwned(ctx, transactionID, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.factures.GetOwned(ctx, factureID, ownerID); err != nil {
		return nil, err
	}

	rap := &models.Rapprochement{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		TransactionID:   tx.ID,
		FactureID:       factureID,
		Type:            models.RapprochementTypeManuel,
		Statut:          models.StatutValide,
		ConfidenceScore: 100,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	// Supersede before creating: if either write fails, the transaction
	// is left with at most its prior valide link, never two.
	superseded, err := s.raps.SupersedeValide(ctx, ownerID, tx.ID, rap.ID)
	if err != nil {
		return nil, errors.Wrap(err, "superseding prior valide link")
	}
	for _, oldID := range superseded {
		s.audit(ctx, ownerID, oldID, tx.ID, models.AuditActionSupersede, "superseded by manual link "+rap.ID.String())
	}

	if err := s.raps.Create(ctx, rap); err != nil {
		return nil, errors.Wrap(err, "persisting manual rapprochement")
	}
	s.audit(ctx, ownerID, rap.ID, tx.ID, models.AuditActionManual, "")

	if err := s.txs.SetStatus(ctx, ownerID, tx.ID, models.TransactionStatusReconcilie); err != nil {
		s.log.WithError(err).WithField("transaction_id", tx.ID).Warn("could not update transaction status")
	}

	s.InvalidateStats(ownerID)
	return rap, nil
}

// EnrichedRapprochement is a rapprochement with its linked records.
type EnrichedRapprochement struct {
	models.Rapprochement
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Facture     *models.Facture     `json:"facture,omitempty"`
}

// List returns the owner's rapprochements, optionally filtered by statut
// and type, each enriched with its transaction and facture.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, statut, typ string) ([]EnrichedRapprochement, error) {
	if statut != "" && !models.ValidStatut(statut) {
		return nil, apperrors.NewValidation("statut", "unknown value "+statut)
	}
	if typ != "" && !models.ValidType(typ) {
		return nil, apperrors.NewValidation("type", "unknown value "+typ)
	}

	raps, err := s.raps.List(ctx, ownerID, statut, typ)
	if err != nil {
		return nil, errors.Wrap(err, "listing rapprochements")
	}

	txIDs := make([]uuid.UUID, 0, len(raps))
	factureIDs := make([]uuid.UUID, 0, len(raps))
	for _, rap := range raps {
		txIDs = append(txIDs, rap.TransactionID)
		factureIDs = append(factureIDs, rap.FactureID)
	}

	txs, err := s.txs.GetByIDs(ctx, ownerID, txIDs)
	if err != nil {
		return nil, errors.Wrap(err, "loading linked transactions")
	}
	factures, err := s.factures.GetByIDs(ctx, ownerID, factureIDs)
	if err != nil {
		return nil, errors.Wrap(err, "loading linked factures")
	}

	txByID := make(map[uuid.UUID]*models.Transaction, len(txs))
	for i := range txs {
		txByID[txs[i].ID] = &txs[i]
	}
	factureByID := make(map[uuid.UUID]*models.Facture, len(factures))
	for i := range factures {
		factureByID[factures[i].ID] = &factures[i]
	}

	enriched := make([]EnrichedRapprochement, 0, len(raps))
	for _, rap := range raps {
		enriched = append(enriched, EnrichedRapprochement{
			Rapprochement: rap,
			Transaction:   txByID[rap.TransactionID],
			Facture:       factureByID[rap.FactureID],
		})
	}
	return enriched, nil
}

func (s *Service) audit(ctx context.Context, ownerID, rapID, txID uuid.UUID, action, reason string) {
	entry := &models.RapprochementAuditLog{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		RapprochementID: rapID,
		TransactionID:   txID,
		Action:          action,
		Reason:          reason,
		CreatedAt:       time.Now(),
	}
	if err := s.raps.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"rapprochement_id": rapID,
			"action":           action,
		}).Warn("could not append audit entry")
	}
}
