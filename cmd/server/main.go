package main

import (
	"time"

	"finsoft-reconciliation-backend/internal/config"
	"finsoft-reconciliation-backend/internal/models"
	"finsoft-reconciliation-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, relying on system env")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	db := config.InitDB()

	db.AutoMigrate(
		&models.Transaction{},
		&models.Facture{},
		&models.Rapprochement{},
		&models.RapprochementAuditLog{},
		&models.MatchRun{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, log)

	if err := r.Run(config.ServerAddr()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
