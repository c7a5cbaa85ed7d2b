package root

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tracktivity/internal/ui"
)

func newRecapCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON  bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Summarize last week's highlights",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if refresh {
				if err := s.svc.InvalidateRecap(ctx, s.user); err != nil {
					return err
				}
			}
			rec, err := s.svc.WeeklyRecap(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			title := fmt.Sprintf("Week of %s", rec.WeekStart.Format("Jan 2"))
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, title))
			fmt.Fprintln(out, rec.Text)
			for _, it := range rec.Items {
				fmt.Fprintf(out, "  %s %s %s\n", ui.RecapIcon(it.Icon), ui.Key.Render(it.Title), ui.Muted.Render(it.Description))
			}
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, ui.LabelValue("Habits completed", rec.HabitsCompleted))
			fmt.Fprintln(out, ui.LabelValue("Tasks completed", rec.TasksCompleted))
			fmt.Fprintln(out, ui.LabelValue("Hours studied", fmt.Sprintf("%.1f", rec.HoursStudied)))
			fmt.Fprintln(out, ui.LabelValue("Missed dailies", rec.MissedDailies))
			fmt.Fprintln(out, ui.LabelValue("Best habit", rec.BestHabitTitle))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the recap as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Recompute instead of using the cached recap")
	return cmd
}
