package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	handler "finsoft-reconciliation-backend/internal/handlers"
	"finsoft-reconciliation-backend/internal/repository"
	"finsoft-reconciliation-backend/internal/services/matching"
	service "finsoft-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, log *logrus.Logger) {
	txRepo := repository.NewTransactionRepository(db)
	factureRepo := repository.NewFactureRepository(db)
	rapRepo := repository.NewRapprochementRepository(db)
	runRepo := repository.NewMatchRunRepository(db)

	engine := matching.NewEngine(matching.ConfigFromEnv(), txRepo, factureRepo, rapRepo, runRepo, log)
	reconService := service.NewService(rapRepo, txRepo, factureRepo, log)

	reconHandler := handler.NewReconciliationHandler(engine, reconService, runRepo)
	importHandler := handler.NewImportHandler(txRepo, factureRepo, reconService, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	owned := api.Group("")
	owned.Use(handler.OwnerRequired())

	recon := owned.Group("/reconciliation")
	recon.POST("/launch", reconHandler.Launch)
	recon.GET("", reconHandler.List)
	recon.GET("/stats", reconHandler.Stats)
	recon.GET("/runs", reconHandler.ListRuns)
	recon.POST("/manual", reconHandler.CreateManual)
	recon.POST("/:id/validate", reconHandler.Validate)
	recon.POST("/:id/reject", reconHandler.Reject)

	owned.POST("/transactions/import", importHandler.ImportTransactions)
	owned.POST("/factures/import", importHandler.ImportFactures)
}
