package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tracktivity/internal/engine"
	"tracktivity/internal/storage"
	"tracktivity/internal/ui"
)

func newHabitCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Track repeatable good and bad habits",
	}
	cmd.AddCommand(
		newHabitAddCmd(flags),
		newHabitListCmd(flags),
		newHabitDoCmd(flags),
		newHabitEditCmd(flags),
		newHabitRmCmd(flags),
	)
	return cmd
}

func newHabitAddCmd(flags *globalFlags) *cobra.Command {
	var (
		details  string
		diff     string
		negative bool
		both     bool
		reset    string
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a habit (positive by default)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := engine.ParseDifficulty(diff)
			if err != nil {
				return err
			}
			rf, err := engine.ParseResetFrequency(reset)
			if err != nil {
				return err
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CreateHabit(ctx, s.user, engine.CreateHabitInput{
				Title:          args[0],
				Details:        details,
				Difficulty:     d,
				AllowPositive:  !negative || both,
				AllowNegative:  negative || both,
				ResetFrequency: rf,
				Tags:           tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d %s\n", ui.Good.Render(ui.IconPlus+" Added"), ui.IconHabit, res.ID, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&details, "details", "", "Longer description")
	cmd.Flags().StringVarP(&diff, "diff", "d", "trivial", "Difficulty (trivial|easy|medium|hard)")
	cmd.Flags().BoolVar(&negative, "negative", false, "Track the habit as a bad habit only")
	cmd.Flags().BoolVar(&both, "both", false, "Track both directions")
	cmd.Flags().StringVar(&reset, "reset", "never", "Counter reset (daily|weekly|monthly|never)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	return cmd
}

func newHabitListCmd(flags *globalFlags) *cobra.Command {
	var (
		filter string
		search string
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List habits (all|weak|strong)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			habits, err := s.svc.ListHabits(ctx, s.user, engine.HabitFilter(strings.ToLower(filter)), storage.ListFilter{Search: search, Tag: tag})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconHabit, "Habits"))
			if len(habits) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(none)"))
				return nil
			}
			for _, h := range habits {
				dirs := ""
				if h.AllowPositive {
					dirs += "+"
				}
				if h.AllowNegative {
					dirs += "-"
				}
				line := fmt.Sprintf("%s #%d %s [%s] %s", ui.Swatch(h.Color, "●"), h.ID, h.Title, dirs, ui.DifficultyText(h.Difficulty))
				line += ui.Muted.Render(fmt.Sprintf(" +%d/-%d", h.PosCount, h.NegCount))
				if len(h.Tags) > 0 {
					line += ui.Muted.Render(" #" + strings.Join(h.Tags, " #"))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all|weak|strong")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match title or details")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only habits with this tag")
	return cmd
}

func newHabitDoCmd(flags *globalFlags) *cobra.Command {
	var negative bool
	cmd := &cobra.Command{
		Use:   "do <id>",
		Short: "Record a habit event (use --neg for a slip)",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CompleteHabit(ctx, s.user, parseID(args), !negative)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Applied {
				fmt.Fprintln(out, ui.Muted.Render(ui.IconInfo+" This habit does not track that direction."))
				return nil
			}
			if res.Positive {
				fmt.Fprintf(out, "%s #%d %s\n", ui.Good.Render(ui.IconDone), res.HabitID, ui.Rewards(res.XPEarned, res.CoinsEarned))
			} else {
				fmt.Fprintf(out, "%s #%d -%d HP\n", ui.Bad.Render(ui.IconHeart), res.HabitID, res.HPLost)
			}
			printProgression(out, res.LevelUp, false, res.KnockedOut)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&negative, "neg", "n", false, "Record a negative event")
	return cmd
}

func newHabitEditCmd(flags *globalFlags) *cobra.Command {
	var (
		title   string
		details string
		diff    string
		reset   string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a habit",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.UpdateHabitInput
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("details") {
				in.Details = &details
			}
			if cmd.Flags().Changed("diff") {
				d, err := engine.ParseDifficulty(diff)
				if err != nil {
					return err
				}
				in.Difficulty = &d
			}
			if cmd.Flags().Changed("reset") {
				rf, err := engine.ParseResetFrequency(reset)
				if err != nil {
					return err
				}
				in.ResetFrequency = &rf
			}
			if cmd.Flags().Changed("tag") {
				in.Tags = append([]string{}, tags...)
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.UpdateHabit(ctx, s.user, parseID(args), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s habit #%d\n", ui.Good.Render(ui.IconDone+" Updated"), parseID(args))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&details, "details", "", "New details")
	cmd.Flags().StringVarP(&diff, "diff", "d", "", "New difficulty")
	cmd.Flags().StringVar(&reset, "reset", "", "New counter reset")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replace tags (repeatable)")
	return cmd
}

func newHabitRmCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a habit",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.DeleteHabit(ctx, s.user, parseID(args)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s habit #%d\n", ui.Warn.Render("Deleted"), parseID(args))
			return nil
		},
	}
	return cmd
}
