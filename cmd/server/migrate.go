package main

import (
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/and161185/gophpress/internal/migrate"
)

// NewMigrateCmd applies or reports the embedded SQL migrations.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Run or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "status"},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Store.Driver != "postgres" || cfg.Store.DSN == "" {
		return oops.Code("config_invalid").Wrap(errors.New("migrate needs store.driver=postgres and store.dsn"))
	}

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}
	ctx := cmd.Context()
	switch action {
	case "status":
		if err := migrate.Status(ctx, cfg.Store.DSN, log); err != nil {
			return oops.Code("migration_failed").With("action", action).Wrap(err)
		}
	default:
		if err := migrate.Up(ctx, cfg.Store.DSN, log); err != nil {
			return oops.Code("migration_failed").With("action", action).Wrap(err)
		}
	}
	v, err := migrate.Version(ctx, cfg.Store.DSN)
	if err != nil {
		return oops.Code("migration_failed").With("action", "version").Wrap(err)
	}
	cmd.Printf("schema version %d\n", v)
	return nil
}
