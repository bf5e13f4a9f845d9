package handler

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"time"

	"finsoft-reconciliation-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransactionCreator persists imported bank transactions.
type TransactionCreator interface {
	Create(ctx context.Context, tx *models.Transaction) error
}

// FactureCreator persists imported factures.
type FactureCreator interface {
	Create(ctx context.Context, f *models.Facture) error
}

// StatsInvalidator drops a cached stats rollup after imports change the
// underlying data.
type StatsInvalidator interface {
	InvalidateStats(ownerID uuid.UUID)
}

type ImportHandler struct {
	transactions TransactionCreator
	factures     FactureCreator
	stats        StatsInvalidator
	log          *logrus.Logger
}

func NewImportHandler(transactions TransactionCreator, factures FactureCreator, stats StatsInvalidator, log *logrus.Logger) *ImportHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ImportHandler{transactions: transactions, factures: factures, stats: stats, log: log}
}

// ImportTransactions ingests a CSV of bank movements
// (date,label,amount,type). Malformed rows are skipped and counted, the
// import itself is synchronous so the response carries final counts.
func (h *ImportHandler) ImportTransactions(c *gin.Context) {
	ownerID := ownerFrom(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return
	}

	inserted, skipped := 0, 0
	rowNum := 1

	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 3 {
			skipped++
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[0]))
		if err != nil {
			h.log.WithField("row", rowNum).Warn("skipping transaction row, invalid date")
			skipped++
			continue
		}
		label := strings.TrimSpace(record[1])
		amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			h.log.WithField("row", rowNum).Warn("skipping transaction row, invalid amount")
			skipped++
			continue
		}

		txType := models.TransactionTypeExpense
		if len(record) > 3 {
			switch strings.TrimSpace(record[3]) {
			case models.TransactionTypeIncome:
				txType = models.TransactionTypeIncome
			case models.TransactionTypeExpense, "":
			default:
				skipped++
				continue
			}
		}

		tx := &models.Transaction{
			ID:              uuid.New(),
			OwnerID:         ownerID,
			TransactionDate: date,
			Label:           label,
			Amount:          amount,
			Type:            txType,
			Status:          models.TransactionStatusPending,
			CreatedAt:       time.Now(),
		}
		if err := h.transactions.Create(c.Request.Context(), tx); err != nil {
			h.log.WithError(err).WithField("row", rowNum).Warn("could not insert transaction row")
			skipped++
			continue
		}
		inserted++
	}

	if inserted > 0 && h.stats != nil {
		h.stats.InvalidateStats(ownerID)
	}

	h.log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"file":     header.Filename,
		"inserted": inserted,
		"skipped":  skipped,
	}).Info("transaction import finished")

	c.JSON(http.StatusOK, gin.H{
		"file":     header.Filename,
		"inserted": inserted,
		"skipped":  skipped,
	})
}

// ImportFactures ingests a CSV of factures (number,client,date,total).
func (h *ImportHandler) ImportFactures(c *gin.Context) {
	ownerID := ownerFrom(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return
	}

	inserted, skipped := 0, 0
	rowNum := 1

	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 4 {
			skipped++
			continue
		}

		number := strings.TrimSpace(record[0])
		if number == "" {
			number = uuid.New().String()
		}
		client := strings.TrimSpace(record[1])
		if client == "" {
			h.log.WithField("row", rowNum).Warn("skipping facture row, empty client")
			skipped++
			continue
		}
		date, err := parseDate(strings.TrimSpace(record[2]))
		if err != nil {
			h.log.WithField("row", rowNum).Warn("skipping facture row, invalid date")
			skipped++
			continue
		}
		total, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil || total.IsNegative() {
			h.log.WithField("row", rowNum).Warn("skipping facture row, invalid total")
			skipped++
			continue
		}

		f := &models.Facture{
			ID:            uuid.New(),
			OwnerID:       ownerID,
			FactureNumber: number,
			ClientName:    client,
			IssueDate:     date,
			TotalTTC:      total,
			CreatedAt:     time.Now(),
		}
		if err := h.factures.Create(c.Request.Context(), f); err != nil {
			h.log.WithError(err).WithField("row", rowNum).Warn("could not insert facture row")
			skipped++
			continue
		}
		inserted++
	}

	if inserted > 0 && h.stats != nil {
		h.stats.InvalidateStats(ownerID)
	}

	h.log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"file":     header.Filename,
		"inserted": inserted,
		"skipped":  skipped,
	}).Info("facture import finished")

	c.JSON(http.StatusOK, gin.H{
		"file":     header.Filename,
		"inserted": inserted,
		"skipped":  skipped,
	})
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse("02-01-2006", s)
	}
	return t, err
}
