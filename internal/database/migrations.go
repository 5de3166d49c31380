package database

import (
	"context"
	"fmt"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Statements are executed one at a time; the mysql driver rejects
// multi-statement Exec calls by default.

var sqliteMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_analyses_table",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS analyses (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMP NOT NULL,
				original_text TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				title TEXT,
				topics TEXT NOT NULL DEFAULT '',
				sentiment TEXT NOT NULL DEFAULT '',
				keywords TEXT NOT NULL DEFAULT '',
				confidence REAL
			)`,
		},
	},
	{
		Version:    2,
		Name:       "index_analyses_created_at",
		Statements: []string{`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`},
	},
}

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_analyses_table",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS analyses (
				id BIGSERIAL PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				original_text TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				title TEXT,
				topics TEXT NOT NULL DEFAULT '',
				sentiment TEXT NOT NULL DEFAULT '',
				keywords TEXT NOT NULL DEFAULT '',
				confidence DOUBLE PRECISION
			)`,
		},
	},
	{
		Version:    2,
		Name:       "index_analyses_created_at",
		Statements: []string{`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`},
	},
}

var mysqlMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_analyses_table",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS analyses (
				id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				created_at DATETIME(6) NOT NULL,
				original_text LONGTEXT NOT NULL,
				summary TEXT NOT NULL,
				title VARCHAR(255) NULL,
				topics TEXT NOT NULL,
				sentiment VARCHAR(16) NOT NULL DEFAULT '',
				keywords TEXT NOT NULL,
				confidence DOUBLE NULL
			) CHARACTER SET utf8mb4`,
		},
	},
	{
		Version:    2,
		Name:       "index_analyses_created_at",
		Statements: []string{`CREATE INDEX idx_analyses_created_at ON analyses(created_at)`},
	},
}

func (d dialect) schemaVersionTable() string {
	switch d.name {
	case DriverPostgres:
		return `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL)`
	case DriverMySQL:
		return `CREATE TABLE IF NOT EXISTS schema_version (version INT NOT NULL PRIMARY KEY, applied_at DATETIME(6) NOT NULL)`
	default:
		return `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at TIMESTAMP NOT NULL)`
	}
}

// Migrate runs all pending migrations, each in its own transaction
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, db.dialect.schemaVersionTable()); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	db.logger.Debug("current schema version", "driver", db.dialect.name, "version", current)

	for _, migration := range db.dialect.migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		for _, stmt := range migration.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			db.dialect.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)"),
			// the injected clock only stamps records
			migration.Version, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		db.logger.Info("applied migration", "driver", db.dialect.name, "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}
