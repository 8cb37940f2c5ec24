package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/config"
	"github.com/Veraticus/suito/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

An automatic backup is written before an existing database is upgraded.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Println(cli.FormatTitle("Database Migration Status"))
		fmt.Printf("  Database: %s\n", cfg.DatabasePath)
		fmt.Printf("  Current version: %d\n", current)
		fmt.Printf("  Latest version: %d\n", storage.ExpectedSchemaVersion)
		return nil
	}

	if current >= storage.ExpectedSchemaVersion {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database is up to date (version %d)", current)))
		return nil
	}

	if current > 0 {
		info, err := store.AutoBackup(ctx, "migrate")
		if err != nil {
			return fmt.Errorf("failed to back up before migrating: %w", err)
		}
		slog.Info("Backup created", "id", info.ID, "size", formatFileSize(info.FileSize))
	}

	common.LogInfo("Running database migrations", common.Fields{
		"database": cfg.DatabasePath,
		"from":     current,
		"to":       storage.ExpectedSchemaVersion,
	})
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database migrated to version %d", storage.ExpectedSchemaVersion)))
	return nil
}
