package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tracktivity/internal/engine"
	"tracktivity/internal/storage"
	"tracktivity/internal/ui"
)

func newTaskCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage scheduled tasks and dailies",
	}
	cmd.AddCommand(
		newTaskAddCmd(flags),
		newTaskListCmd(flags),
		newTaskDoCmd(flags),
		newTaskUndoCmd(flags),
		newTaskEditCmd(flags),
		newTaskRmCmd(flags),
		newTagsCmd(flags),
	)
	return cmd
}

// parseDue accepts RFC 3339 or a bare date; a bare date is due at the end of
// that UTC day.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return nil, engine.ValidationError{Field: "due", Reason: "use YYYY-MM-DD or RFC 3339"}
	}
	d = d.Add(24*time.Hour - time.Second)
	return &d, nil
}

func newTaskAddCmd(flags *globalFlags) *cobra.Command {
	var (
		details string
		diff    string
		daily   bool
		due     string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a scheduled task or a daily",
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
			dueAt, err := parseDue(due)
			if err != nil {
				return err
			}
			kind := engine.TaskScheduled
			if daily {
				kind = engine.TaskDaily
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CreateTask(ctx, s.user, engine.CreateTaskInput{
				Title:      args[0],
				Details:    details,
				Difficulty: d,
				Kind:       kind,
				Due:        dueAt,
				Tags:       tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d %s\n", ui.Good.Render(ui.IconPlus+" Added"), ui.KindIcon(string(kind)), res.ID, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&details, "details", "", "Longer description")
	cmd.Flags().StringVarP(&diff, "diff", "d", "trivial", "Difficulty (trivial|easy|medium|hard)")
	cmd.Flags().BoolVar(&daily, "daily", false, "Create a daily instead of a scheduled task")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC 3339); ignored for dailies")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	return cmd
}

func newTaskListCmd(flags *globalFlags) *cobra.Command {
	var (
		filter string
		search string
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (all|scheduled|dailies)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := s.svc.ListTasks(ctx, s.user, engine.TaskFilter(strings.ToLower(filter)), storage.ListFilter{Search: search, Tag: tag})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconTask, "Tasks"))
			if len(tasks) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(none)"))
				return nil
			}
			for _, t := range tasks {
				fmt.Fprintln(out, taskLine(t))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all|scheduled|dailies")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match title or details")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only tasks with this tag")
	return cmd
}

func taskLine(t engine.TaskView) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("%s %s %s #%d %s %s", ui.Swatch(t.Color, "●"), check, ui.KindIcon(t.Kind), t.ID, t.Title, ui.DifficultyText(t.Difficulty))
	switch {
	case engine.TaskKind(t.Kind) == engine.TaskDaily:
		line += ui.Muted.Render(fmt.Sprintf(" streak %d", t.Streak))
	case t.Due != nil:
		due := " due " + t.Due.Format("2006-01-02 15:04")
		if t.Overdue {
			line += ui.Bad.Render(due + " (overdue)")
		} else {
			line += ui.Muted.Render(due)
		}
	}
	if len(t.Tags) > 0 {
		line += ui.Muted.Render(" #" + strings.Join(t.Tags, " #"))
	}
	return line
}

func newTaskDoCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "do <id>",
		Short: "Complete a task or daily",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CompleteTask(ctx, s.user, parseID(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("%s #%d is already done.", ui.IconInfo, res.TaskID)))
				return nil
			}
			line := fmt.Sprintf("%s #%d %s", ui.Good.Render(ui.IconDone+" Completed"), res.TaskID, ui.Rewards(res.XPEarned, res.CoinsEarned))
			if res.Streak > 0 {
				line += " " + ui.Warn.Render(fmt.Sprintf("%s %d", ui.IconFlame, res.Streak))
			}
			fmt.Fprintln(out, line)
			printProgression(out, res.LevelUp, false, false)
			return nil
		},
	}
	return cmd
}

func newTaskUndoCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <id>",
		Short: "Reopen a completed task (undo completion)",
		Long: `Reopen a task by undoing its last completion.

This will:
- Remove the last completion record
- Take back the XP and coins it awarded
- Step a daily's streak back by one
- Charge the overdue penalty again if a scheduled task is past due

Use this to fix accidental completions.`,
		Args: idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.UncompleteTask(ctx, s.user, parseID(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("%s #%d is not completed.", ui.IconInfo, res.TaskID)))
				return nil
			}
			fmt.Fprintf(out, "%s #%d %s\n", ui.Warn.Render(ui.IconUndo+" Reopened"), res.TaskID, ui.Muted.Render("("+ui.Rewards(res.XPEarned, res.CoinsEarned)+")"))
			if res.HPLost > 0 {
				fmt.Fprintf(out, "%s -%d HP (overdue)\n", ui.Bad.Render(ui.IconHeart), res.HPLost)
			}
			printProgression(out, false, res.LevelDown, res.KnockedOut)
			return nil
		},
	}
	return cmd
}

func newTaskEditCmd(flags *globalFlags) *cobra.Command {
	var (
		title   string
		details string
		diff    string
		kind    string
		due     string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.UpdateTaskInput
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
			if cmd.Flags().Changed("kind") {
				k, err := engine.ParseTaskKind(kind)
				if err != nil {
					return err
				}
				in.Kind = &k
			}
			if cmd.Flags().Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				in.Due = d
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

			if err := s.svc.UpdateTask(ctx, s.user, parseID(args), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s task #%d\n", ui.Good.Render(ui.IconDone+" Updated"), parseID(args))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&details, "details", "", "New details")
	cmd.Flags().StringVarP(&diff, "diff", "d", "", "New difficulty")
	cmd.Flags().StringVar(&kind, "kind", "", "scheduled|daily")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replace tags (repeatable)")
	return cmd
}

func newTaskRmCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.DeleteTask(ctx, s.user, parseID(args)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s task #%d\n", ui.Warn.Render("Deleted"), parseID(args))
			return nil
		},
	}
	return cmd
}

func newTagsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List available tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			tags, err := s.svc.ListTags(ctx, s.user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, ", "))
			return nil
		},
	}
	return cmd
}

func printProgression(out io.Writer, levelUp, levelDown, knockedOut bool) {
	if levelUp {
		fmt.Fprintln(out, ui.BadgeLevelUp+" "+ui.Gold.Render(ui.IconTrophy))
	}
	if knockedOut {
		fmt.Fprintln(out, ui.Bad.Render(ui.IconSkull+" Knocked out: health refilled, coins lost"))
	}
	if levelDown && !knockedOut {
		fmt.Fprintln(out, ui.BadgeLevelDown)
	}
}
