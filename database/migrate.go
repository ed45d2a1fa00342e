// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"gfgchapter/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	logrus.Info("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
	); err != nil {
		return fmt.Errorf("failed to run core migrations: %w", err)
	}
	createCoreIndexes(db)
	logrus.Info("✅ Core migrations completed")

	if err := RunMentorshipMigrations(db); err != nil {
		return fmt.Errorf("failed to run mentorship migrations: %w", err)
	}

	logrus.Info("✅ All migrations completed successfully")
	return nil
}

// createCoreIndexes creates indexes for core tables
func createCoreIndexes(db *gorm.DB) {
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_credits ON users(total_credits DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_name ON teams(name)")
}
