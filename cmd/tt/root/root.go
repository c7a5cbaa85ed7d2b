package root

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tracktivity/internal/ui"
)

const Version = "0.2.0"

// globalFlags override the matching config values when set.
type globalFlags struct {
	user   string
	dbPath string
	env    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "tt",
		Short:         "Tracktivity: habits, tasks and study time with RPG progression",
		Long:          "Tracktivity is a local-first CLI/TUI tracker for habits, tasks, dailies and study sessions. Everything you do earns XP and coins; what you skip costs health.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&flags.user, "user", "u", "", "User id (default from TRACKTIVITY_USER)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (default from TRACKTIVITY_DB_PATH)")
	cmd.PersistentFlags().StringVar(&flags.env, "env-file", ".env", "Optional dotenv file")

	cmd.AddCommand(
		newInitCmd(flags),
		newStatusCmd(flags),
		newSlotCmd(flags),
		newHabitCmd(flags),
		newTaskCmd(flags),
		newDailyCmd(flags),
		newRecapCmd(flags),
		newStudyCmd(flags),
		newShopCmd(flags),
		newBoardCmd(flags),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}

// idArg validates a single integer id argument.
func idArg(name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New(name + " is required")
		}
		if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
			return errors.New(name + " must be an integer")
		}
		return nil
	}
}

func parseID(args []string) int64 {
	id, _ := strconv.ParseInt(args[0], 10, 64)
	return id
}
