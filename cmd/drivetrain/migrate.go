package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/internal/database"
	"github.com/OCAP2/drivetrain/internal/model"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// setupDB connects to Postgres and creates the recording tables.
func setupDB() error {
	m := database.NewManager(ZeroLogger.With().Str("component", "database").Logger())
	if err := m.Connect(config.GetDBConfig()); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer m.Close()

	if err := m.Setup(); err != nil {
		return fmt.Errorf("error setting up database: %w", err)
	}

	if m.ShouldSaveLocal {
		m.SqliteFilePath = filepath.Join(backupDir(), fmt.Sprintf("%s_%s.db", ServiceName, SessionStartTime.Format("20060102_150405")))
		if err := m.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("error writing local database: %w", err)
		}
		Logger.Warn("Postgres unreachable, created a local SQLite database instead", "path", m.SqliteFilePath)
		return nil
	}
	Logger.Info("Database tables ready")
	return nil
}

// backupDir is where SQLite dumps land.
func backupDir() string {
	if p := viper.GetString("storage.sqlite.dumpPath"); p != "" {
		return filepath.Dir(p)
	}
	return viper.GetString("logsDir")
}

// migrateBackupsSqlite copies every SQLite dump into Postgres, one
// transaction per file, and renames migrated files to .migrated.
func migrateBackupsSqlite() error {
	sqlitePaths, err := database.GetBackupDBPaths(backupDir())
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %w", err)
	}
	postgresDB, err := database.OpenPostgres(config.GetDBConfig())
	if err != nil {
		return fmt.Errorf("error getting postgres database: %w", err)
	}
	if err := database.Migrate(postgresDB); err != nil {
		return fmt.Errorf("error migrating postgres schema: %w", err)
	}

	migrated := 0
	for _, sqlitePath := range sqlitePaths {
		if err := migrateBackup(sqlitePath, postgresDB); err != nil {
			Logger.Error("Failed to migrate backup", "path", sqlitePath, "error", err)
			continue
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			Logger.Warn("Failed to rename migrated backup", "path", sqlitePath, "error", err)
		}
		migrated++
	}

	Logger.Info("Backup migration finished", "found", len(sqlitePaths), "migrated", migrated)
	return nil
}

func migrateBackup(sqlitePath string, postgresDB *gorm.DB) error {
	sqliteDB, err := database.OpenSqlite(sqlitePath)
	if err != nil {
		return fmt.Errorf("error getting sqlite database: %w", err)
	}
	if sqlDB, err := sqliteDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	return postgresDB.Transaction(func(tx *gorm.DB) error {
		if err := migrateTable(sqliteDB, tx, model.Session{}, true); err != nil {
			return err
		}
		if err := migrateTable(sqliteDB, tx, model.TickRecord{}, false); err != nil {
			return err
		}
		if err := migrateTable(sqliteDB, tx, model.StateEvent{}, false); err != nil {
			return err
		}
		return migrateTable(sqliteDB, tx, model.WriterPerformance{}, true)
	})
}

// migrateTable copies all rows of one table. Autoincrement ids are dropped
// unless keepID is set so Postgres assigns fresh ones.
func migrateTable[M any](sqliteDB, postgresDB *gorm.DB, m M, keepID bool) error {
	var rows []map[string]any
	if err := sqliteDB.Model(&m).Find(&rows).Error; err != nil {
		return fmt.Errorf("error reading %T: %w", m, err)
	}
	Logger.Info("Found records", "count", len(rows), "table", fmt.Sprintf("%T", m))
	if len(rows) == 0 {
		return nil
	}

	if !keepID {
		for _, row := range rows {
			delete(row, "id")
		}
	}

	if err := postgresDB.Model(&m).Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 1000).Error; err != nil {
		Logger.Error("Error migrating table", "error", err, "database", sqliteDB.Name(), "table", fmt.Sprintf("%T", m))
		return err
	}
	return nil
}
