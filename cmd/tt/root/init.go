package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tracktivity/internal/ui"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create your profile with a starter habit and task",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := s.svc.CreateUser(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Created {
				fmt.Fprintln(out, ui.Muted.Render(ui.IconInfo+" Profile "+s.user+" already exists."))
				return nil
			}
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Welcome, "+s.user))
			fmt.Fprintf(out, "- %s starter habit #%d\n", ui.IconHabit, res.HabitID)
			fmt.Fprintf(out, "- %s starter task #%d\n", ui.IconTask, res.TaskID)
			return nil
		},
	}
	return cmd
}
