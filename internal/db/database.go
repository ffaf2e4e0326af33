package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vaultblockmagic/vault/internal/models"
)

var DB *gorm.DB

// InitDB connects and migrates the journal schema. An empty DSN disables
// persistence entirely; pipelines then run without a journal.
func InitDB(dsn string) error {
	if dsn == "" {
		log.Println("Database DSN not configured, operation journal disabled")
		return nil
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := DB.AutoMigrate(
		&models.VaultOperation{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("✅ Database connected and migrated")
	return nil
}

// InitSignerDB migrates the signing-service tables in addition to connecting.
func InitSignerDB(dsn string) error {
	if err := InitDB(dsn); err != nil {
		return err
	}
	if DB == nil {
		return fmt.Errorf("signer service requires a database DSN")
	}
	if err := DB.AutoMigrate(
		&models.UsernameSecret{},
		&models.UsernamePassword{},
	); err != nil {
		return fmt.Errorf("failed to migrate signer schema: %w", err)
	}
	return nil
}
