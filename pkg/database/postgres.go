package database

import (
	"fmt"
	"log/slog"
	"time"

	"go-apotek-pos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the pool and bridges gorm's logger onto log.
func Connect(dsn string, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statements for Supabase Transaction Mode
	}), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: false, // Disables GORM-level prepared statements
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Connection Pooling Setup (Penting untuk Production)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connection established")
	return db, nil
}

// Migrate creates or updates every table, including the stock >= 0 check
// and the case-insensitive name indexes on categories and suppliers.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Supplier{},
		&model.Product{},
		&model.Sale{},
		&model.SaleItem{},
	); err != nil {
		return err
	}
	return dropLegacyNameIndexes(db)
}

// legacyNameIndexes were case-sensitive and let "Wadah" and "WADAH" coexist.
var legacyNameIndexes = []struct {
	model any
	name  string
}{
	{&model.Category{}, "idx_categories_name"},
	{&model.Supplier{}, "idx_suppliers_name"},
}

func dropLegacyNameIndexes(db *gorm.DB) error {
	m := db.Migrator()
	for _, idx := range legacyNameIndexes {
		if !m.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := m.DropIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("drop index %s: %w", idx.name, err)
		}
	}
	return nil
}
