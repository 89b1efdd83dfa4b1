package database

import (
	"context"
	"fmt"
	"log/slog"

	"gigboard/internal/config"
	"gigboard/internal/middleware"

	"gorm.io/gorm"
)

// AutoMigrateOnStart reports whether the server migrates on boot. Production
// deployments run cmd/migrate explicitly instead.
func AutoMigrateOnStart(cfg *config.Config) bool {
	return !cfg.IsProduction()
}

// ApplySchema migrates the schema when the environment allows it at startup.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if !AutoMigrateOnStart(cfg) {
		middleware.Logger.Info("skipping auto-migrate", slog.String("env", cfg.Env))
		return nil
	}
	return Migrate(ctx, db)
}

// Migrate creates or updates every table in PersistentModels.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	middleware.Logger.Info("database migration completed")
	return nil
}
