// Package gorm provides GORM-based database operations for inspo.
package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
// Tables whose rows must cascade (or SET NULL) on parent deletion are
// created with raw SQL, since AutoMigrate does not emit the foreign key
// clauses without association fields on the structs.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Ideas, tags, and their associations
		{
			ID: "001_ideas_and_tags",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Idea{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Tag{}); err != nil {
					return err
				}
				sqls := []string{
					`CREATE TABLE IF NOT EXISTS idea_tags (
						idea_id INTEGER NOT NULL,
						tag_id INTEGER NOT NULL,
						PRIMARY KEY (idea_id, tag_id),
						FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE CASCADE,
						FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_idea_tags_idea ON idea_tags(idea_id)`,
					`CREATE INDEX IF NOT EXISTS idx_idea_tags_tag ON idea_tags(tag_id)`,
					`CREATE TABLE IF NOT EXISTS market_data (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						idea_id INTEGER NOT NULL UNIQUE,
						market_size TEXT,
						competitors TEXT,
						technical_feasibility TEXT,
						development_timeline TEXT,
						FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE CASCADE
					)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("market_data", "idea_tags", "tags", "ideas")
			},
		},

		// Migration 002: Generation log
		{
			ID: "002_generation_log",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					`CREATE TABLE IF NOT EXISTS generation_log (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						timestamp TEXT,
						timestamp_epoch INTEGER NOT NULL,
						success INTEGER NOT NULL,
						error_message TEXT,
						execution_time_seconds REAL,
						idea_id INTEGER,
						FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE SET NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_generation_log_ts ON generation_log(timestamp_epoch DESC)`,
					`CREATE INDEX IF NOT EXISTS idx_generation_log_success ON generation_log(success)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("generation_log")
			},
		},

		// Migration 003: Projects and idea connections
		{
			ID: "003_projects",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Project{}); err != nil {
					return err
				}
				sqls := []string{
					`CREATE TABLE IF NOT EXISTS idea_projects (
						idea_id INTEGER NOT NULL,
						project_id INTEGER NOT NULL,
						connection_date TEXT NOT NULL,
						relevance_notes TEXT,
						PRIMARY KEY (idea_id, project_id),
						FOREIGN KEY (idea_id) REFERENCES ideas (id) ON DELETE CASCADE,
						FOREIGN KEY (project_id) REFERENCES projects (id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_idea_projects_idea ON idea_projects(idea_id)`,
					`CREATE INDEX IF NOT EXISTS idx_idea_projects_project ON idea_projects(project_id)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("idea_projects", "projects")
			},
		},

		// Migration 004: Chat sessions and messages
		{
			ID: "004_chat",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					`CREATE TABLE IF NOT EXISTS chat_sessions (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						project_id INTEGER NOT NULL,
						title TEXT NOT NULL,
						created_at TEXT NOT NULL,
						updated_at TEXT NOT NULL,
						FOREIGN KEY (project_id) REFERENCES projects (id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_sessions_project ON chat_sessions(project_id)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at DESC)`,
					`CREATE TABLE IF NOT EXISTS chat_messages (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						session_id INTEGER NOT NULL,
						role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
						content TEXT NOT NULL,
						timestamp TEXT NOT NULL,
						timestamp_epoch INTEGER NOT NULL,
						FOREIGN KEY (session_id) REFERENCES chat_sessions (id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id)`,
					`CREATE INDEX IF NOT EXISTS idx_chat_messages_ts ON chat_messages(timestamp_epoch)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("chat_messages", "chat_sessions")
			},
		},

		// Migration 005: Project analysis snapshots
		{
			ID: "005_project_analyses",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					`CREATE TABLE IF NOT EXISTS project_analyses (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						project_id INTEGER NOT NULL,
						idea_alignment_score REAL,
						implemented_features TEXT,
						missing_features TEXT,
						divergent_features TEXT,
						technical_debt_score REAL,
						completion_estimate REAL,
						recommendations TEXT,
						analysis_date TEXT NOT NULL,
						analysis_date_epoch INTEGER NOT NULL,
						FOREIGN KEY (project_id) REFERENCES projects (id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_project_analyses_project ON project_analyses(project_id)`,
					`CREATE INDEX IF NOT EXISTS idx_project_analyses_date ON project_analyses(analysis_date_epoch DESC)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("project_analyses")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}

	return nil
}
