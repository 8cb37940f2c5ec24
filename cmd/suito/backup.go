package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/config"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create, list and delete database backups.

Backups are full snapshots of the database written next to it in backups/.`,
		Example: `  # Back up before a bulk edit
  suito backup create --tag before-bulk-edit

  # List all backups
  suito backup list`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(deleteBackupCmd())

	return cmd
}

func createBackupCmd() *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(nil)
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info, err := store.CreateBackup(ctx, tag, description)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}

			fmt.Printf("%s Created backup %s (%s, %d rows)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize),
				info.TotalRows())
			if info.Description != "" {
				fmt.Printf("  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Backup tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the backup")

	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(nil)
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			backups, err := store.ListBackups()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println(cli.FormatInfo("No backups yet. Create one with: suito backup create"))
				return nil
			}

			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				kind := "manual"
				if b.IsAuto {
					kind = "auto"
				}
				rows = append(rows, []string{
					b.ID,
					formatRelativeTime(b.CreatedAt),
					formatFileSize(b.FileSize),
					strconv.Itoa(b.TotalRows()),
					kind,
					orDash(b.Description),
				})
			}
			fmt.Println(cli.FormatTitle("Backups"))
			fmt.Println(cli.RenderTable([]string{"ID", "Created", "Size", "Rows", "Kind", "Description"}, rows))
			return nil
		},
	}
}

func deleteBackupCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(nil)
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			confirmer := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			confirmer.AssumeYes = yes
			ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Delete backup %s?", args[0]))
			if err != nil || !ok {
				return err
			}

			if err := store.DeleteBackup(args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Deleted backup " + args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
