package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite"
	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite/migration"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrações pendentes do banco de dados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(c.cfg.SQLiteDSN), c.cfg.Timezone)
			if err != nil {
				return fmt.Errorf("falha ao abrir o banco de dados: %w", err)
			}
			defer storage.Close()

			out := cmd.OutOrStdout()
			if !statusOnly {
				applied, err := storage.Migrate(ctx, c.logger)
				if err != nil {
					return err
				}
				for _, version := range applied {
					fmt.Fprintf(out, "aplicada %s\n", version)
				}
			}

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "versão atual: %s\npendentes: %d\n", status.CurrentVersion, status.PendingCount)
			for _, pending := range status.PendingMigrations {
				fmt.Fprintf(out, "  %s %s\n", pending.Version, pending.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "apenas mostra o estado das migrações")
	return cmd
}
