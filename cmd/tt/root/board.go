package root

import (
	"context"

	"github.com/spf13/cobra"

	"tracktivity/internal/tui"
)

func newBoardCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the TUI dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.RunBoard(ctx, s.svc, s.user, cmd.OutOrStdout())
		},
	}

	return cmd
}
