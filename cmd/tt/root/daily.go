package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tracktivity/internal/ui"
)

func newDailyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Review yesterday and run the daily reset",
	}
	cmd.AddCommand(newDailyCheckCmd(flags), newDailyResetCmd(flags))
	return cmd
}

func newDailyCheckCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List dailies and tasks left open yesterday",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CheckDailies(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.NeedsCheck {
				fmt.Fprintln(out, ui.Good.Render(ui.IconDone+" Nothing left open from yesterday."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconDaily, "Left open yesterday"))
			for _, d := range res.PendingDailies {
				fmt.Fprintf(out, "- %s #%d %s\n", ui.IconDaily, d.ID, d.Title)
			}
			for _, t := range res.PendingTasks {
				fmt.Fprintf(out, "- %s #%d %s\n", ui.IconTask, t.ID, t.Title)
			}
			fmt.Fprintln(out, ui.Muted.Render("Complete what you did with `tt task do <id>`, then run `tt daily reset`."))
			return nil
		},
	}
	return cmd
}

func newDailyResetCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Apply missed-daily and overdue penalties (once per day)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.ResetDailies(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.AlreadyRan {
				fmt.Fprintln(out, ui.Muted.Render(ui.IconInfo+" Already reset today."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconDaily, "Daily reset"))
			fmt.Fprintln(out, ui.LabelValue("Missed dailies", res.MissedDailies))
			fmt.Fprintln(out, ui.LabelValue("Overdue tasks", res.OverdueTasks))
			fmt.Fprintln(out, ui.LabelValue("Habit counters reset", res.HabitsReset))
			if res.HPLost > 0 {
				fmt.Fprintln(out, ui.Bad.Render(fmt.Sprintf("%s -%d HP", ui.IconHeart, res.HPLost)))
			}
			printProgression(out, false, false, res.KnockedOut)
			return nil
		},
	}
	return cmd
}
