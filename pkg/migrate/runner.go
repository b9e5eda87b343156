package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

// DefaultDir is the migrations directory relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source resolves dir to a filesystem of migrations. DefaultDir maps to the
// copy compiled into the binary, so deployed workers need no checkout.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	if filepath.Clean(dir) == DefaultDir {
		return fs.Sub(embedded, "migrations")
	}
	return os.DirFS(dir), nil
}

// Runner applies goose migrations and logs every step.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner builds a Postgres runner over the migrations in dir.
func NewRunner(db *sql.DB, dir string, logg *logger.Logger) (*Runner, error) {
	fsys, err := Source(dir)
	if err != nil {
		return nil, err
	}
	return newRunner(db, goose.DialectPostgres, fsys, logg)
}

func newRunner(db *sql.DB, dialect goose.Dialect, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Exec runs a named command: up, down, redo, reset, status or version.
// version needs a target in YYYYMMDDHHMMSS form.
func (r *Runner) Exec(ctx context.Context, command, target string) error {
	switch command {
	case "up":
		return r.Up(ctx)
	case "down":
		return r.Down(ctx)
	case "redo":
		if err := r.Down(ctx); err != nil {
			return err
		}
		res, err := r.provider.UpByOne(ctx)
		r.report(ctx, res)
		return wrap("up-by-one", err)
	case "reset":
		res, err := r.provider.DownTo(ctx, 0)
		r.report(ctx, res...)
		return wrap("reset", err)
	case "status":
		return r.logStatus(ctx)
	case "version":
		return r.To(ctx, target)
	}
	return fmt.Errorf("unknown migrate command %q", command)
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	res, err := r.provider.Up(ctx)
	r.report(ctx, res...)
	return wrap("up", err)
}

// Down rolls back the newest applied migration.
func (r *Runner) Down(ctx context.Context) error {
	res, err := r.provider.Down(ctx)
	r.report(ctx, res)
	return wrap("down", err)
}

// To migrates up or down until the database sits at target.
func (r *Runner) To(ctx context.Context, target string) error {
	if target == "" {
		return errors.New("target version is required")
	}
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var res []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		res, err = r.provider.UpTo(ctx, version)
	default:
		res, err = r.provider.DownTo(ctx, version)
	}
	r.report(ctx, res...)
	return wrap("migrate to "+target, err)
}

// Pending reports how many migrations have not been applied yet.
func (r *Runner) Pending(ctx context.Context) (int, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return 0, wrap("status", err)
	}
	pending := 0
	for _, s := range statuses {
		if s.State == goose.StatePending {
			pending++
		}
	}
	return pending, nil
}

func (r *Runner) logStatus(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return wrap("status", err)
	}
	for _, s := range statuses {
		fields := map[string]any{
			"version": s.Source.Version,
			"file":    filepath.Base(s.Source.Path),
			"state":   string(s.State),
		}
		if !s.AppliedAt.IsZero() {
			fields["applied_at"] = s.AppliedAt.UTC()
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"file":        filepath.Base(res.Source.Path),
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			r.logg.Error(r.logg.WithFields(ctx, fields), "migration failed", res.Error)
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration applied")
	}
}

func wrap(step string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", step, err)
}
