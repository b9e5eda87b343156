package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/siteboss-backend/pkg/app"
	"github.com/angelmondragon/siteboss-backend/pkg/db"
	"github.com/angelmondragon/siteboss-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|redo|reset|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.Create(*dir, *name, time.Now())
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	proc := app.Start("siteboss-migrate")
	logg := proc.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": *cmd,
		"dir": *dir,
		"env": proc.Config.App.Env,
	})

	// no dev auto-migration here, it would race the requested command
	dbClient, err := db.New(ctx, proc.Config.DB, logg)
	proc.Must("database", err)
	proc.OnShutdown("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	proc.Must("sql database", err)
	runner, err := migrate.NewRunner(sqlDB, *dir, logg)
	proc.Must("migrations", err)

	proc.Run(ctx, func(ctx context.Context) error {
		return runner.Exec(ctx, *cmd, *version)
	})
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
