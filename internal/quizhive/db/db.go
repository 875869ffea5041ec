// Package db implements the relational repository over GORM. Driver errors
// are translated to the shared sentinel kinds at this boundary so the
// service layer never sees gorm error values.
package db

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRepository connects to postgres, retrying while the database comes up,
// and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	gdb, err := backoff.RetryWithData(func() (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: gdb}, nil
}

// New wraps an already-open gorm handle. Used by tests running against
// in-memory sqlite.
func New(gdb *gorm.DB) *Repository {
	return &Repository{db: gdb}
}

// Migrate creates or updates the schema for every entity.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Employee{},
		&models.Quiz{},
		&models.Question{},
		&models.Answer{},
		&models.QuizResult{},
		&models.Notification{},
	)
}

// WithTransaction runs fn against a transaction-scoped repository, rolling
// back on error.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
