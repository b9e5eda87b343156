package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup in dev when
// SITEBOSS_AUTO_MIGRATE is on. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, DefaultDir, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	if pending == 0 {
		logg.Info(ctx, "schema up to date")
		return nil
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"pending": pending}), "auto-migrating dev database")
	return runner.Up(ctx)
}
