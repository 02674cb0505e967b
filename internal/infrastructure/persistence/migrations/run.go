package migrations

import (
	"database/sql"
	"fmt"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Run applies all pending migrations over a dedicated connection pool
func Run(dsn, databaseName string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	m, err := New(db, databaseName, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return m.Up()
}
