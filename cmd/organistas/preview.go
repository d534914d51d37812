package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

func newPreviewCmd(c *cli) *cobra.Command {
	var (
		churchID string
		start    string
		end      string
		months   int
		save     string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Gera o rodízio de um período sem salvar",
		Long: `Gera o rodízio de uma igreja a partir das escalas salvas e dos ciclos atuais.

Exemplos:
  organistas preview --church c1                         # mês corrente
  organistas preview --church c1 --start 2026-03-01 --months 3
  organistas preview --church c1 --start 2026-03-01 --end 2026-03-31 --save "Março 2026"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			params := application.PreviewParams{ChurchID: churchID, PeriodMonths: months}
			if params.StartDate, err = optionalDate(start, a); err != nil {
				return err
			}
			if params.EndDate, err = optionalDate(end, a); err != nil {
				return err
			}

			result, err := a.rotation.Preview(ctx, params)
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			writeAssignments(out, result.Items)
			for _, gap := range result.Gaps {
				fmt.Fprintf(out, "sem organista: %s %s ciclo %d %s (%s)\n",
					calendar.FormatDate(gap.Date), gap.ServiceID, gap.CycleNumber, gap.Role, gap.Reason)
			}

			if save == "" {
				return nil
			}
			schedule, err := a.schedules.SaveSchedule(ctx, application.SaveScheduleParams{
				ChurchID:      churchID,
				ReferenceName: save,
				StartDate:     result.StartDate,
				EndDate:       result.EndDate,
				Items:         result.Items,
			})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(out, "escala salva: %s\n", schedule.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&churchID, "church", "", "identificador da igreja")
	cmd.Flags().StringVar(&start, "start", "", "data inicial AAAA-MM-DD (padrão: hoje)")
	cmd.Flags().StringVar(&end, "end", "", "data final AAAA-MM-DD")
	cmd.Flags().IntVar(&months, "months", 0, "duração em meses quando --end não é informado")
	cmd.Flags().StringVar(&save, "save", "", "salva o resultado como escala com este nome")
	_ = cmd.MarkFlagRequired("church")
	return cmd
}

func writeAssignments(out io.Writer, items []scheduler.Assignment) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATA\tDIA\tHORA\tCICLO\tFUNÇÃO\tORGANISTA")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.Date.Format(calendar.BrazilianDateLayout),
			calendar.WeekdayPT(item.Date.Weekday()),
			item.Time,
			item.CycleNumber,
			item.Role,
			item.MusicianName,
		)
	}
	_ = w.Flush()
}
