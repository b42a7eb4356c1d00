package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/shop"
)

func newContentCmd(opts *globalOptions) *cobra.Command {
	var free, premium bool

	cmd := &cobra.Command{
		Use:   "content",
		Short: "List free and premium content",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			items := shop.Contents()
			switch {
			case free && !premium:
				items = shop.FreeContents()
			case premium && !free:
				items = shop.PremiumContents()
			}

			lang := a.core.Preferences.Language()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tPRICE\tTITLE\tAUTHOR")
			for _, c := range items {
				price := "free"
				if c.Premium() {
					price = strconv.FormatInt(c.Price, 10)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Type, price, c.LocalizedTitle(lang), c.Author)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&free, "free", false, "Only free content")
	cmd.Flags().BoolVar(&premium, "premium", false, "Only premium content")

	return cmd
}

func newUnlockCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock CONTENT_ID",
		Short: "Unlock content, paying tokens for premium items",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			id, err := parseID("content", args[0])
			if err != nil {
				return err
			}

			res, err := a.core.Shop.Unlock(ctx, id)
			if err != nil {
				return err
			}

			if res.Free {
				a.printf("shop.download_started")
				return nil
			}
			a.printf("shop.unlocked", res.Charged)
			a.printf("wallet.balance", res.Balance)
			return nil
		}),
	}
}

func newContestCmd(opts *globalOptions) *cobra.Command {
	contestCmd := &cobra.Command{
		Use:   "contest",
		Short: "List and join contests",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			lang := a.core.Preferences.Language()
			now := time.Now()

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRIZE\tPARTICIPANTS\tDAYS LEFT\tTITLE")
			for _, c := range shop.Contests() {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n", c.ID, c.PrizePool, c.Participants, c.DaysRemaining(now), c.LocalizedTitle(lang))
			}
			return w.Flush()
		}),
	}

	joinCmd := &cobra.Command{
		Use:   "join CONTEST_ID",
		Short: "Join a contest",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			id, err := parseID("contest", args[0])
			if err != nil {
				return err
			}

			if _, err := a.core.Shop.JoinContest(ctx, id); err != nil {
				return err
			}
			a.printf("contest.joined")
			return nil
		}),
	}
	contestCmd.AddCommand(joinCmd)

	return contestCmd
}

func parseID(kind, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewUnknownItemError(kind, raw)
	}
	return id, nil
}
