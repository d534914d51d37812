package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/souzalinux78/gestao-organista/internal/seed"
)

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <arquivo.yaml>",
		Short: "Carrega igrejas, cultos, organistas e ciclos de um arquivo YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := file.Apply(ctx, seed.Repositories{
				Churches:  a.storage.Churches,
				Services:  a.storage.Services,
				Musicians: a.storage.Musicians,
				Cycles:    a.storage.Cycles,
			}, c.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "igrejas: %d, cultos: %d, organistas: %d, ciclos: %d\n",
				summary.Churches, summary.Services, summary.Musicians, summary.Cycles)
			return nil
		},
	}
}
