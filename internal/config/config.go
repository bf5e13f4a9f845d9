// Package config wires environment configuration: database handle and
// matching thresholds. Values come from the process environment; main
// loads .env first via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection described by the environment.
// DATABASE_URL wins; otherwise the DSN is assembled from DB_* variables.
func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			getenv("DB_HOST", "localhost"),
			getenv("DB_USER", "postgres"),
			getenv("DB_PASSWORD", "postgres"),
			getenv("DB_NAME", "finsoft"),
			getenv("DB_PORT", "5432"),
			getenv("DB_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	return db
}

// ServerAddr returns the listen address, default :8080.
func ServerAddr() string {
	return ":" + getenv("PORT", "8080")
}

// CORSOrigins returns the allowed browser origins.
func CORSOrigins() []string {
	return []string{getenv("FRONTEND_ORIGIN", "http://localhost:3000")}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvFloat reads a float64 from the environment, falling back when the
// variable is unset or malformed.
func EnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logrus.WithField("var", key).Warn("ignoring malformed numeric env var")
		return fallback
	}
	return f
}

// EnvInt reads an int from the environment, falling back when the
// variable is unset or malformed.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("var", key).Warn("ignoring malformed numeric env var")
		return fallback
	}
	return n
}
