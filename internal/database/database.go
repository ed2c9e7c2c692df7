package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"theone-todo/internal/config"
)

// InitDB はデータベース接続を初期化し、スキーマを適用します。
func InitDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	switch cfg.Driver {
	case "sqlite3":
		// SQLiteは書き込みが1本なので接続も1本に絞る。
		// :memory: は接続ごとに別DBになるため、接続を閉じないこと。
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := applySchema(db, cfg.Driver); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Successfully connected to database", "driver", cfg.Driver)
	return db, nil
}

// applyPragmas は SQLite の設定を行います。
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema はテーブルがなければ作成します。何度呼んでも安全です。
func applySchema(db *sql.DB, driver string) error {
	statements := mysqlSchema
	if driver == "sqlite3" {
		statements = sqliteSchema
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
