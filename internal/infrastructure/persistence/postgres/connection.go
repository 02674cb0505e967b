// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/omq/mealsync/internal/infrastructure/config"
	gormModels "github.com/omq/mealsync/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// ConnectionManager manages PostgreSQL database connections
type ConnectionManager struct {
	config *config.DatabaseConfig
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

// NewConnectionManager opens the primary connection and registers any
// configured read replicas
func NewConnectionManager(cfg *config.Config, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config: &cfg.Database,
		logger: log.Named("postgres"),
	}

	if err := cm.initializePrimaryConnection(); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	cm.logger.Info("Database connection manager initialized",
		zap.String("host", cfg.Database.Host),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("read_replicas", len(cfg.Database.ReadReplicas)),
	)
	return cm, nil
}

// initializePrimaryConnection sets up the primary database connection
func (cm *ConnectionManager) initializePrimaryConnection() error {
	db, err := gorm.Open(postgres.Open(cm.config.DSN(cm.config.Host)), &gorm.Config{
		Logger:                 gormModels.NewLogger(cm.logger, cm.config.LogLevel, cm.config.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cm.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cm.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cm.config.ConnMaxIdleTime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.sqlDB = sqlDB
	return nil
}

// initializeReadReplicas routes meal list queries to the replicas
func (cm *ConnectionManager) initializeReadReplicas() error {
	if len(cm.config.ReadReplicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cm.config.ReadReplicas))
	for i, host := range cm.config.ReadReplicas {
		replicas[i] = postgres.Open(cm.config.DSN(host))
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(replicas)))
	return nil
}

// GetDB returns the main database connection
func (cm *ConnectionManager) GetDB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary connection pool
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.sqlDB
}

// HealthCheck performs a health check on the database connection
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Close closes the primary connection pool
func (cm *ConnectionManager) Close() error {
	if cm.sqlDB == nil {
		return nil
	}
	if err := cm.sqlDB.Close(); err != nil {
		cm.logger.Error("Failed to close primary database", zap.Error(err))
		return err
	}
	return nil
}
