package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/souzalinux78/gestao-organista/internal/config"
	"github.com/souzalinux78/gestao-organista/internal/logging"
)

// cli carries state shared by the subcommands of one execution.
type cli struct {
	envFile string
	cfg     config.Config
	logger  *slog.Logger
	started time.Time
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "organistas",
		Short: "Rodízio de organistas e cobertura de cultos",
		Long: `organistas gera e mantém o rodízio de organistas de cada igreja:
ciclos de organistas, escalas salvas, regeneração a partir de uma data,
importação e exportação de planilhas e o painel de cobertura.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if c.envFile != "" {
				c.cfg, err = config.LoadFile(c.envFile)
			} else {
				c.cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			c.logger = logging.NewLogger(cmd.ErrOrStderr(), c.cfg.LogLevel, c.cfg.LogFormat).
				With("correlation_id", uuid.NewString())
			c.started = time.Now()
			c.logger.Debug("command start", "command", cmd.CommandPath())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				c.logger.Debug("command end", "command", cmd.CommandPath(), "duration_ms", time.Since(c.started).Milliseconds())
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "arquivo .env com a configuração")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newSeedCmd(c),
		newPreviewCmd(c),
		newExportCmd(c),
	)
	return root
}

// open wires the application for a subcommand.
func (c *cli) open(ctx context.Context) (*app, error) {
	return openApp(ctx, c.cfg, c.logger)
}
