package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/calendar"
)

func newExportCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <escala-id>",
		Short: "Exporta uma escala salva no formato de planilha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("falha ao criar %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			if _, err := a.schedules.Export(ctx, args[0], out); err != nil {
				return describe(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "arquivo de saída (padrão: saída padrão)")
	return cmd
}

func optionalDate(value string, a *app) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := calendar.ParseDate(value, a.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("data inválida %q: use o formato AAAA-MM-DD", value)
	}
	return &parsed, nil
}

// describe flattens validation errors into one readable message.
func describe(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || !vErr.HasErrors() {
		return err
	}
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return fmt.Errorf("dados inválidos: %s", strings.Join(fields, "; "))
}
