package database

import (
	"fmt"
	"log/slog"
)

const DefaultConnectionString = "face_database.db"

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	if connectionString == "" {
		connectionString = DefaultConnectionString
	}

	switch databaseType {
	case "sqlite", "":
		database, err = NewSQLiteDatabase(connectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema (ensuring tables exist)", "connection", connectionString)
	if _, err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
