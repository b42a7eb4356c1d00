package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/rewards"
)

const defaultHistoryLimit = 20

func newBalanceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the token balance and totals",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			l := a.core.Ledger
			a.printf("wallet.balance", l.Balance())
			a.printf("wallet.totals", l.EarnedTotal(), l.PurchasedTotal(), l.SpentTotal())
			return nil
		}),
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions, newest first",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			txs := a.core.Ledger.History(limit)
			if len(txs) == 0 {
				a.printf("wallet.empty_history")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tAMOUNT\tDESCRIPTION")
			for _, tx := range txs {
				sign := "+"
				if tx.Kind == domain.TransactionSpent {
					sign = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s%d\t%s\n",
					tx.Timestamp.Local().Format(time.DateTime), tx.Kind, sign, tx.Amount, tx.Description)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of transactions; 0 lists all")

	return cmd
}

func newRewardsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List claimable rewards and when they can next be claimed",
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, _ []string) error {
			statuses, err := a.core.Rewards.Eligibility(ctx)
			if err != nil {
				return err
			}

			tr := a.tr()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REWARD\tTOKENS\tSTATUS")
			for _, s := range statuses {
				name := string(s.Reward.Key)
				if s.Partner != nil {
					name += " " + s.Partner.ID
				}

				status := tr.T("rewards.available")
				switch {
				case !s.Eligible && !s.NextEligibleAt.IsZero():
					status = tr.Tf("rewards.next", s.NextEligibleAt.Local().Format(time.DateTime))
				case !s.Eligible:
					status = tr.T("rewards.done")
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, s.Reward.Amount, status)
			}
			return w.Flush()
		}),
	}
}

func newClaimCmd(opts *globalOptions) *cobra.Command {
	var partnerID string

	cmd := &cobra.Command{
		Use:   "claim REWARD",
		Short: "Claim a reward: daily, profile, first_purchase, referral, survey or partner_visit",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			key, err := rewards.ParseKey(args[0])
			if err != nil {
				return apperrors.NewUnknownItemError("reward", args[0])
			}

			tx, err := a.core.Rewards.Claim(ctx, key, rewards.ClaimOptions{PartnerID: partnerID})
			if err != nil {
				return err
			}

			if key == rewards.KeyPartnerVisit {
				partner, _ := rewards.FindPartner(partnerID)
				a.printf("rewards.partner_visited", tx.Amount, partner.Username)
				return nil
			}
			a.printf("rewards.claimed", tx.Amount)
			return nil
		}),
	}
	cmd.Flags().StringVar(&partnerID, "partner", "", "Partner id or @username for partner_visit")

	return cmd
}

func newPackagesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List token packages",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOKENS\tBONUS\tTOTAL\tPRICE\t")
			for _, p := range a.core.Rewards.Packages() {
				best := ""
				if p.BestValue {
					best = "best value"
				}
				fmt.Fprintf(w, "%s\t%d\t%d%%\t%d\t%s\t%s\n", p.ID, p.Tokens, p.BonusPercent, p.Total(), p.PriceLabel(), best)
			}
			return w.Flush()
		}),
	}
}

func newBuyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buy PACKAGE",
		Short: "Purchase a token package",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), a.tr().T("tokens.payment_processing"))

			purchase, err := a.core.Rewards.PurchasePackage(ctx, args[0])
			if err != nil {
				return err
			}
			a.printf("tokens.purchased", purchase.Transaction.Amount)
			return nil
		}),
	}
}
