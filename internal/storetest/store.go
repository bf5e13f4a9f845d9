// Package storetest provides an in-memory store implementing the
// persistence interfaces of the matching engine and the reconciliation
// service, for tests that should not need a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// Store holds all entities in memory, scoped by owner the same way the
// gorm repositories scope their queries. All methods are safe for
// concurrent use.
type Store struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*models.Transaction
	factures     map[uuid.UUID]*models.Facture
	raps         map[uuid.UUID]*models.Rapprochement
	audits       []*models.RapprochementAuditLog
	runs         map[uuid.UUID]*models.MatchRun

	// FailRapCreateFor makes rapprochement creation fail for the given
	// transaction ids, to exercise partial-failure handling.
	FailRapCreateFor map[uuid.UUID]error

	// FailListTransactions aborts transaction loading when set.
	FailListTransactions error

	// FailSupersede makes SupersedeValide fail, to exercise the
	// at-most-one-valide invariant on the error path.
	FailSupersede error
}

func New() *Store {
	return &Store{
		transactions:     make(map[uuid.UUID]*models.Transaction),
		factures:         make(map[uuid.UUID]*models.Facture),
		raps:             make(map[uuid.UUID]*models.Rapprochement),
		runs:             make(map[uuid.UUID]*models.MatchRun),
		FailRapCreateFor: make(map[uuid.UUID]error),
	}
}

// AddTransaction seeds a transaction row.
func (s *Store) AddTransaction(tx *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.ID] = &cp
}

// AddFacture seeds a facture row.
func (s *Store) AddFacture(f *models.Facture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.factures[f.ID] = &cp
}

// Transaction store methods

func (s *Store) Create(ctx context.Context, tx *models.Transaction) error {
	s.AddTransaction(tx)
	return nil
}

func (s *Store) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if tx.OwnerID != ownerID {
		return nil, apperrors.ErrUnauthorized
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) ListExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	if s.FailListTransactions != nil {
		return nil, s.FailListTransactions
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID == ownerID && tx.Type == models.TransactionTypeExpense {
			out = append(out, *tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListUnreconciledExpenses(ctx context.Context, ownerID uuid.UUID) ([]models.Transaction, error) {
	if s.FailListTransactions != nil {
		return nil, s.FailListTransactions
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	valide := s.valideTransactionsLocked(ownerID)
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID == ownerID && tx.Type == models.TransactionTypeExpense && !valide[tx.ID] {
			out = append(out, *tx)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, id := range ids {
		if tx, ok := s.transactions[id]; ok && tx.OwnerID == ownerID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return apperrors.ErrNotFound
	}
	tx.Status = status
	return nil
}

// Facture store methods; facade types keep the two Create methods apart.

// Factures exposes the facture-creation side of the store.
func (s *Store) Factures() *FactureStore { return &FactureStore{s} }

type FactureStore struct{ s *Store }

func (fs *FactureStore) Create(ctx context.Context, f *models.Facture) error {
	fs.s.AddFacture(f)
	return nil
}

func (fs *FactureStore) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Facture, error) {
	return fs.s.GetOwnedFacture(ctx, id, ownerID)
}

func (fs *FactureStore) GetByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Facture, error) {
	return fs.s.GetFacturesByIDs(ctx, ownerID, ids)
}

func (fs *FactureStore) ListUnconsumed(ctx context.Context, ownerID uuid.UUID) ([]models.Facture, error) {
	return fs.s.ListUnconsumed(ctx, ownerID)
}

func (s *Store) GetOwnedFacture(ctx context.Context, id, ownerID uuid.UUID) (*models.Facture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.factures[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if f.OwnerID != ownerID {
		return nil, apperrors.ErrUnauthorized
	}
	cp := *f
	return &cp, nil
}

func (s *Store) ListUnconsumed(ctx context.Context, ownerID uuid.UUID) ([]models.Facture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	consumed := make(map[uuid.UUID]bool)
	for _, rap := range s.raps {
		if rap.OwnerID == ownerID && rap.Statut == models.StatutValide {
			consumed[rap.FactureID] = true
		}
	}
	var out []models.Facture
	for _, f := range s.factures {
		if f.OwnerID == ownerID && !consumed[f.ID] {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) GetFacturesByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Facture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Facture
	for _, id := range ids {
		if f, ok := s.factures[id]; ok && f.OwnerID == ownerID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// Rapprochement store methods

// Raps exposes the rapprochement side of the store.
func (s *Store) Raps() *RapStore { return &RapStore{s} }

type RapStore struct{ s *Store }

func (rs *RapStore) Create(ctx context.Context, rap *models.Rapprochement) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	if err, ok := rs.s.FailRapCreateFor[rap.TransactionID]; ok {
		return err
	}
	cp := *rap
	rs.s.raps[rap.ID] = &cp
	return nil
}

func (rs *RapStore) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Rapprochement, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	rap, ok := rs.s.raps[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if rap.OwnerID != ownerID {
		return nil, apperrors.ErrUnauthorized
	}
	cp := *rap
	return &cp, nil
}

func (rs *RapStore) List(ctx context.Context, ownerID uuid.UUID, statut, typ string) ([]models.Rapprochement, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	var out []models.Rapprochement
	for _, rap := range rs.s.raps {
		if rap.OwnerID != ownerID {
			continue
		}
		if statut != "" && rap.Statut != statut {
			continue
		}
		if typ != "" && rap.Type != typ {
			continue
		}
		out = append(out, *rap)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (rs *RapStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Rapprochement, error) {
	return rs.List(ctx, ownerID, "", "")
}

func (rs *RapStore) SetStatut(ctx context.Context, ownerID, id uuid.UUID, statut string) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	rap, ok := rs.s.raps[id]
	if !ok || rap.OwnerID != ownerID {
		return apperrors.ErrNotFound
	}
	rap.Statut = statut
	rap.UpdatedAt = time.Now()
	return nil
}

func (rs *RapStore) SupersedeValide(ctx context.Context, ownerID, transactionID, keepID uuid.UUID) ([]uuid.UUID, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	if rs.s.FailSupersede != nil {
		return nil, rs.s.FailSupersede
	}
	var ids []uuid.UUID
	for _, rap := range rs.s.raps {
		if rap.OwnerID == ownerID && rap.TransactionID == transactionID &&
			rap.Statut == models.StatutValide && rap.ID != keepID {
			rap.Statut = models.StatutRejete
			rap.UpdatedAt = time.Now()
			ids = append(ids, rap.ID)
		}
	}
	return ids, nil
}

func (rs *RapStore) HasValide(ctx context.Context, ownerID, transactionID uuid.UUID) (bool, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	for _, rap := range rs.s.raps {
		if rap.OwnerID == ownerID && rap.TransactionID == transactionID && rap.Statut == models.StatutValide {
			return true, nil
		}
	}
	return false, nil
}

func (rs *RapStore) ExistsSuggestion(ctx context.Context, ownerID, transactionID, factureID uuid.UUID) (bool, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	for _, rap := range rs.s.raps {
		if rap.OwnerID == ownerID && rap.TransactionID == transactionID &&
			rap.FactureID == factureID && rap.Statut == models.StatutSuggestion {
			return true, nil
		}
	}
	return false, nil
}

func (rs *RapStore) CountAutoSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	var count int64
	for _, rap := range rs.s.raps {
		if rap.OwnerID == ownerID && rap.Type == models.RapprochementTypeAuto && !rap.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (rs *RapStore) AppendAudit(ctx context.Context, entry *models.RapprochementAuditLog) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()
	cp := *entry
	rs.s.audits = append(rs.s.audits, &cp)
	return nil
}

// Match run store methods

// Runs exposes the match-run side of the store.
func (s *Store) Runs() *RunStore { return &RunStore{s} }

type RunStore struct{ s *Store }

func (ru *RunStore) Create(ctx context.Context, run *models.MatchRun) error {
	ru.s.mu.Lock()
	defer ru.s.mu.Unlock()
	cp := *run
	ru.s.runs[run.ID] = &cp
	return nil
}

func (ru *RunStore) Complete(ctx context.Context, run *models.MatchRun) error {
	ru.s.mu.Lock()
	defer ru.s.mu.Unlock()
	stored, ok := ru.s.runs[run.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	stored.AutoCount = run.AutoCount
	stored.SuggestionCount = run.SuggestionCount
	stored.SkippedCount = run.SkippedCount
	stored.ErrorCount = run.ErrorCount
	stored.TransactionsSeen = run.TransactionsSeen
	stored.Status = "completed"
	stored.CompletedAt = &now
	return nil
}

func (ru *RunStore) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.MatchRun, error) {
	ru.s.mu.Lock()
	defer ru.s.mu.Unlock()
	var out []models.MatchRun
	for _, run := range ru.s.runs {
		if run.OwnerID == ownerID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Inspection helpers

// RapsFor returns all rapprochement rows of a transaction.
func (s *Store) RapsFor(transactionID uuid.UUID) []models.Rapprochement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Rapprochement
	for _, rap := range s.raps {
		if rap.TransactionID == transactionID {
			out = append(out, *rap)
		}
	}
	return out
}

// ValideCount returns the number of valide rows for a transaction.
func (s *Store) ValideCount(transactionID uuid.UUID) int {
	count := 0
	for _, rap := range s.RapsFor(transactionID) {
		if rap.Statut == models.StatutValide {
			count++
		}
	}
	return count
}

// AuditActions returns the recorded audit actions in order.
func (s *Store) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.audits {
		out = append(out, a.Action)
	}
	return out
}

// TransactionStatus returns the current status of a seeded transaction.
func (s *Store) TransactionStatus(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.transactions[id]; ok {
		return tx.Status
	}
	return ""
}

func (s *Store) valideTransactionsLocked(ownerID uuid.UUID) map[uuid.UUID]bool {
	valide := make(map[uuid.UUID]bool)
	for _, rap := range s.raps {
		if rap.OwnerID == ownerID && rap.Statut == models.StatutValide {
			valide[rap.TransactionID] = true
		}
	}
	return valide
}

func sortTransactions(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.Before(txs[j].TransactionDate)
		}
		return txs[i].ID.String() < txs[j].ID.String()
	})
}
