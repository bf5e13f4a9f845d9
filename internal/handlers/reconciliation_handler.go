package handler

import (
	"context"
	"errors"
	"net/http"

	"finsoft-reconciliation-backend/internal/apperrors"
	"finsoft-reconciliation-backend/internal/models"
	"finsoft-reconciliation-backend/internal/services/matching"
	service "finsoft-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunLister exposes the owner's recent match runs.
type RunLister interface {
	ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.MatchRun, error)
}

type ReconciliationHandler struct {
	engine  *matching.Engine
	service *service.Service
	runs    RunLister
}

func NewReconciliationHandler(engine *matching.Engine, svc *service.Service, runs RunLister) *ReconciliationHandler {
	return &ReconciliationHandler{engine: engine, service: svc, runs: runs}
}

// Launch runs the matcher for the calling owner and returns the counts.
func (h *ReconciliationHandler) Launch(c *gin.Context) {
	ownerID := ownerFrom(c)

	report, err := h.engine.Launch(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.service.InvalidateStats(ownerID)

	c.JSON(http.StatusOK, report)
}

// List returns the owner's rapprochements, optionally filtered by statut
// and type, enriched with their linked records.
func (h *ReconciliationHandler) List(c *gin.Context) {
	ownerID := ownerFrom(c)
	statut := c.Query("statut")
	typ := c.Query("type")

	items, err := h.service.List(c.Request.Context(), ownerID, statut, typ)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// Validate confirms a rapprochement, superseding any prior valide link
// for the same transaction.
func (h *ReconciliationHandler) Validate(c *gin.Context) {
	ownerID := ownerFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rapprochement ID"})
		return
	}

	rap, err := h.service.Validate(c.Request.Context(), id, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rapprochement validated", "rapprochement": rap})
}

// Reject marks a rapprochement as rejected. The row stays for audit.
func (h *ReconciliationHandler) Reject(c *gin.Context) {
	ownerID := ownerFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rapprochement ID"})
		return
	}

	rap, err := h.service.Reject(c.Request.Context(), id, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rapprochement rejected", "rapprochement": rap})
}

// CreateManual links a transaction to a facture by explicit user choice.
func (h *ReconciliationHandler) CreateManual(c *gin.Context) {
	ownerID := ownerFrom(c)

	var payload struct {
		TransactionID string `json:"transaction_id"`
		FactureID     string `json:"facture_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	factureID, err := uuid.Parse(payload.FactureID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid facture ID"})
		return
	}

	rap, err := h.service.CreateManual(c.Request.Context(), txID, factureID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "rapprochement created", "rapprochement": rap})
}

// Stats returns the owner's reconciliation rollup.
func (h *ReconciliationHandler) Stats(c *gin.Context) {
	ownerID := ownerFrom(c)

	stats, err := h.service.Stats(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListRuns returns the owner's recent matcher runs, newest first.
func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	ownerID := ownerFrom(c)

	runs, err := h.runs.ListRecent(c.Request.Context(), ownerID, 20)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": runs, "count": len(runs)})
}

// respondError maps the service error taxonomy to HTTP statuses. The
// unauthorized message stays uniform so callers cannot probe other
// owners' ids.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
