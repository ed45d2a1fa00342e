// database/mentorship_migrations.go - Mentorship Thread Migrations
package database

import (
	"gfgchapter/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMentorshipMigrations creates the thread and message tables
func RunMentorshipMigrations(db *gorm.DB) error {
	logrus.Info("Running mentorship migrations...")

	if err := db.AutoMigrate(
		&models.ThreadDetails{},
		&models.ThreadMessage{},
	); err != nil {
		return err
	}

	if err := createMentorshipIndexes(db); err != nil {
		return err
	}

	logrus.Info("✅ Mentorship migrations completed successfully")
	return nil
}

// createMentorshipIndexes backs the list and live-query orderings.
func createMentorshipIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_threads_team_created ON mentorship_threads(team_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_threads_team_last_message ON mentorship_threads(team_id, last_message_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_threads_enabled ON mentorship_threads(is_enabled)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_thread_seq ON mentorship_messages(thread_id, seq)",
		"CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON mentorship_messages(thread_id, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
