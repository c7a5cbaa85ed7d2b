package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tracktivity/internal/engine"
	"tracktivity/internal/ui"
)

func newShopCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Spend coins on rewards and avatar backgrounds",
	}
	cmd.AddCommand(
		newShopListCmd(flags),
		newShopBuyCmd(flags),
		newShopRewardCmd(flags),
		newShopOwnedCmd(flags),
		newShopEquipCmd(flags),
	)
	return cmd
}

func newShopListCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rewards and backgrounds for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			listing, err := s.svc.ShopItems(ctx, s.user)
			if err != nil {
				return err
			}
			p, err := s.svc.Profile(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconShop, "Shop"))
			fmt.Fprintln(out, ui.LabelValue("Coins", ui.Gold.Render(fmt.Sprintf("%s %d", ui.IconCoin, p.Coins))))

			fmt.Fprintln(out, ui.H2.Render("Rewards"))
			if len(listing.Rewards) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(none yet: tt shop reward add <name> --price N)"))
			}
			for _, r := range listing.Rewards {
				fmt.Fprintf(out, "- %d %s %s %s\n", r.ID, r.Name, ui.Gold.Render(fmt.Sprintf("%d%s", r.Price, ui.IconCoin)), ui.Muted.Render(r.Description))
			}
			fmt.Fprintln(out, ui.H2.Render("Customizations"))
			for _, c := range listing.Customizations {
				fmt.Fprintf(out, "- %s %s %s %s\n", c.ID, ui.Swatch(c.BackgroundColor, "███"), c.Name, ui.Gold.Render(fmt.Sprintf("%d%s", c.Price, ui.IconCoin)))
			}
			return nil
		},
	}
	return cmd
}

func newShopBuyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy <item_id>",
		Short: "Buy a reward (numeric id) or a customization (bg_... / item_...)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("item_id is required")
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

			res, err := s.svc.Purchase(ctx, s.user, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %d %s %s\n",
				ui.Good.Render(ui.IconShop+" Bought"), res.ItemID, res.Price, ui.IconCoin,
				ui.Muted.Render(fmt.Sprintf("(%d left)", res.CoinsLeft)))
			return nil
		},
	}
	return cmd
}

func newShopRewardCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Manage your own rewards",
	}

	var (
		price int
		desc  string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Define a reward",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("name is required")
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

			res, err := s.svc.CreateReward(ctx, s.user, engine.RewardInput{Name: args[0], Description: desc, Price: price})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reward %d %s\n", ui.Good.Render(ui.IconPlus+" Added"), res.ID, args[0])
			return nil
		},
	}
	add.Flags().IntVarP(&price, "price", "p", 10, "Price in coins")
	add.Flags().StringVar(&desc, "desc", "", "Description")

	var (
		newName  string
		newPrice int
		newDesc  string
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a reward",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.UpdateRewardInput
			if cmd.Flags().Changed("name") {
				in.Name = &newName
			}
			if cmd.Flags().Changed("price") {
				in.Price = &newPrice
			}
			if cmd.Flags().Changed("desc") {
				in.Description = &newDesc
			}

			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.UpdateReward(ctx, s.user, parseID(args), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reward %d\n", ui.Good.Render(ui.IconDone+" Updated"), parseID(args))
			return nil
		},
	}
	edit.Flags().StringVar(&newName, "name", "", "New name")
	edit.Flags().IntVarP(&newPrice, "price", "p", 0, "New price")
	edit.Flags().StringVar(&newDesc, "desc", "", "New description")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a reward",
		Args:  idArg("id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.svc.DeleteReward(ctx, s.user, parseID(args)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reward %d\n", ui.Warn.Render("Deleted"), parseID(args))
			return nil
		},
	}

	cmd.AddCommand(add, edit, rm)
	return cmd
}

func newShopOwnedCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owned",
		Short: "List owned avatar items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			owned, err := s.svc.OwnedItems(ctx, s.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconShop, "Backgrounds"))
			for _, bg := range owned.Backgrounds {
				fmt.Fprintf(out, "- %s %s %s\n", ui.Swatch(bg.Color, "███"), bg.ID, bg.Name)
			}
			fmt.Fprintln(out, ui.LabelValue("Avatar", owned.Avatars[0].Name))
			return nil
		},
	}
	return cmd
}

func newShopEquipCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equip <background_id>",
		Short: "Equip an owned background (or \"default\")",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("background_id is required")
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

			p, err := s.svc.UpdateAvatar(ctx, s.user, engine.AvatarInput{Background: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render(ui.IconDone+" Equipped"), ui.Swatch(p.AvatarBackground, "███"))
			return nil
		},
	}
	return cmd
}
