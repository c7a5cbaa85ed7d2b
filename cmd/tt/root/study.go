package root

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tracktivity/internal/engine"
	"tracktivity/internal/ui"
)

func newStudyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Time study sessions and manage subject colors",
	}
	cmd.AddCommand(
		newStudyStartCmd(flags),
		newStudyStopCmd(flags),
		newStudyStatusCmd(flags),
		newStudyStatsCmd(flags),
		newStudyColorsCmd(flags),
	)
	return cmd
}

func newStudyStartCmd(flags *globalFlags) *cobra.Command {
	var (
		color string
		carry bool
	)
	cmd := &cobra.Command{
		Use:   "start [subject]",
		Short: "Start a study session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.StartStudyInput{Color: color, CarryOverColors: carry}
			if len(args) == 1 {
				in.Subject = args[0]
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.StartStudy(ctx, s.user, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s\n", ui.Good.Render(ui.IconBook+" Studying"), ui.Swatch(res.Color, "●"), res.Subject)
			if res.SubjectChanged {
				fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("%s %s already belongs to %s this month; logging under %s.", ui.IconWarn, res.Color, res.Subject, res.Subject)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&color, "color", "c", "", "Subject color (#rrggbb)")
	cmd.Flags().BoolVar(&carry, "carry-over", false, "Copy last month's colors if this is the month's first session")
	return cmd
}

func newStudyStopCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running session and collect the reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.StopStudy(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d min (%.2f h) %s\n", ui.Good.Render(ui.IconClock+" Stopped"), res.DurationMinutes, res.Hours, ui.Rewards(res.XPEarned, res.CoinsEarned))
			printProgression(out, res.LevelUp, false, false)
			return nil
		},
	}
	return cmd
}

func newStudyStatusCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			sess, err := s.svc.ActiveStudySession(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sess == nil {
				fmt.Fprintln(out, ui.Muted.Render(ui.IconInfo+" No active session."))
				return nil
			}
			elapsed := time.Since(sess.StartTime).Round(time.Minute)
			fmt.Fprintf(out, "%s %s %s since %s (%s)\n", ui.IconBook, ui.Swatch(sess.Color, "●"), sess.Subject, sess.StartTime.Local().Format("15:04"), elapsed)
			return nil
		},
	}
	return cmd
}

func newStudyStatsCmd(flags *globalFlags) *cobra.Command {
	var (
		weekly bool
		offset int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Hours by day and subject for a month or week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := s.svc.StudyStats(ctx, s.user, engine.StudyStatsQuery{Weekly: weekly, Offset: offset})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			title := st.Start.Format("January 2006")
			if st.Weekly {
				title = "Week of " + st.Start.Format("Jan 2")
			}
			fmt.Fprintln(out, ui.Heading(ui.IconBook, title))
			fmt.Fprintln(out, ui.LabelValue("Total", fmt.Sprintf("%.2f h", st.TotalHours)))

			subjects := sortedKeys(st.BySubject)
			for _, subj := range subjects {
				fmt.Fprintf(out, "  %s %-16s %6.2f h\n", ui.Swatch(st.Legend[subj], "●"), subj, st.BySubject[subj])
			}
			days := make([]string, 0, len(st.ByDay))
			for d := range st.ByDay {
				days = append(days, d)
			}
			sort.Strings(days)
			if len(days) > 0 {
				fmt.Fprintln(out, "")
			}
			for _, d := range days {
				var parts []string
				for _, subj := range sortedKeys(st.ByDay[d]) {
					parts = append(parts, fmt.Sprintf("%s %.1f", ui.Swatch(st.Legend[subj], subj), st.ByDay[d][subj]))
				}
				fmt.Fprintf(out, "%s  %s\n", ui.Muted.Render(d), strings.Join(parts, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&weekly, "weekly", "w", false, "Show a week instead of a month")
	cmd.Flags().IntVarP(&offset, "offset", "o", 0, "Periods back from the current one (e.g. -1)")
	return cmd
}

func newStudyColorsCmd(flags *globalFlags) *cobra.Command {
	var lastMonth bool
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Show this month's subject colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			legend, err := s.svc.SubjectColors(ctx, s.user, lastMonth)
			if err != nil {
				return err
			}
			printLegend(cmd, fmt.Sprintf("%d-%02d", legend.Year, legend.Month), legend.Legend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lastMonth, "last-month", false, "Show last month's legend")
	cmd.AddCommand(newStudyColorsCarryCmd(flags), newStudyColorsSetCmd(flags))
	return cmd
}

func newStudyColorsCarryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carry",
		Short: "Copy last month's colors into this month",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CarryOverColors(ctx, s.user)
			if err != nil {
				return err
			}
			printLegend(cmd, fmt.Sprintf("carried over %d", res.Count), res.Legend)
			return nil
		},
	}
	return cmd
}

func newStudyColorsSetCmd(flags *globalFlags) *cobra.Command {
	var renames []string
	cmd := &cobra.Command{
		Use:   "set <subject=#rrggbb>...",
		Short: "Replace this month's legend (subjects not listed are dropped)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			legend, err := parsePairs(args)
			if err != nil {
				return err
			}
			// --rename old=new, stored as new -> old.
			byOld, err := parsePairs(renames)
			if err != nil {
				return err
			}
			renameMap := make(map[string]string, len(byOld))
			for oldName, newName := range byOld {
				renameMap[newName] = oldName
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.UpdateSubjectColors(ctx, s.user, legend, renameMap); err != nil {
				return err
			}
			printLegend(cmd, "updated", legend)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&renames, "rename", nil, "Rename a subject first (old=new, repeatable)")
	return cmd
}

func parsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, errors.New("expected key=value, got " + a)
		}
		out[k] = v
	}
	return out, nil
}

func printLegend(cmd *cobra.Command, title string, legend map[string]string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Heading(ui.IconBook, "Subject colors ("+title+")"))
	if len(legend) == 0 {
		fmt.Fprintln(out, ui.Muted.Render("(none)"))
		return
	}
	for _, subj := range sortedKeys(legend) {
		fmt.Fprintf(out, "  %s %s %s\n", ui.Swatch(legend[subj], "●"), subj, ui.Muted.Render(legend[subj]))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
