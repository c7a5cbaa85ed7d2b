package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tracktivity/internal/engine"
	"tracktivity/internal/ui"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, health, coins and lifetime stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := s.svc.Profile(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Status of "+p.UserID))
			fmt.Fprintln(out, ui.LabelValue("Level", p.Level))
			fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%s %d/%d", ui.Bar(p.XP, p.MaxXP, 20), p.XP, p.MaxXP)))
			fmt.Fprintln(out, ui.LabelValue("HP", fmt.Sprintf("%s %d/%d", ui.Bar(p.HP, p.MaxHP, 20), p.HP, p.MaxHP)))
			fmt.Fprintln(out, ui.LabelValue("Coins", ui.Gold.Render(fmt.Sprintf("%s %d", ui.IconCoin, p.Coins))))
			fmt.Fprintln(out, ui.LabelValue("Avatar", fmt.Sprintf("%s %s", p.AvatarState, ui.Swatch(p.AvatarBackground, "███"))))
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render(ui.IconTrophy+" Lifetime"))
			for _, t := range engine.StatTypes {
				v, err := s.svc.StatValue(ctx, s.user, t)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "- %s %s\n", ui.Key.Render(statLabel(t)+":"), formatStat(v))
			}

			slots, err := s.svc.StatSlots(ctx, s.user)
			if err != nil {
				return err
			}
			if len(slots) > 0 {
				fmt.Fprintln(out, "")
				fmt.Fprintln(out, ui.H2.Render(ui.IconStar+" Pinned"))
				for n := 1; n <= engine.MaxStatSlots; n++ {
					t, ok := slots[n]
					if !ok {
						continue
					}
					v, err := s.svc.StatValue(ctx, s.user, t)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d. %s %s\n", n, ui.Key.Render(statLabel(t)+":"), formatStat(v))
				}
			}
			return nil
		},
	}
	return cmd
}

func newSlotCmd(flags *globalFlags) *cobra.Command {
	var names []string
	for _, t := range engine.StatTypes {
		names = append(names, string(t))
	}
	cmd := &cobra.Command{
		Use:   "slot <1-4> [stat]",
		Short: "Pin a stat to a status slot (omit the stat to clear it)",
		Long:  "Pin a stat to one of the four status slots. Stats: " + strings.Join(names, ", "),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return errors.New("slot number is required")
			}
			if _, err := strconv.Atoi(args[0]); err != nil {
				return errors.New("slot must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			slot, _ := strconv.Atoi(args[0])
			var t engine.StatType
			if len(args) == 2 {
				t = engine.StatType(strings.ToLower(args[1]))
			}
			if err := s.svc.SetStatSlot(ctx, s.user, slot, t); err != nil {
				return err
			}
			if t == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s slot %d cleared\n", ui.Muted.Render(ui.IconInfo), slot)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s slot %d shows %s\n", ui.Good.Render(ui.IconDone), slot, statLabel(t))
			return nil
		},
	}
	return cmd
}

func statLabel(t engine.StatType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatStat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
