package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ekilore",
		Short:         "EKILORE wallet, rewards and content from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "Config environment (defaults to APP_ENV or development)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.configDirs, "config-dir", nil, "Directories searched for <env>.yaml")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newSocialCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newBalanceCmd(opts),
		newHistoryCmd(opts),
		newRewardsCmd(opts),
		newClaimCmd(opts),
		newPackagesCmd(opts),
		newBuyCmd(opts),
		newContentCmd(opts),
		newUnlockCmd(opts),
		newContestCmd(opts),
		newLanguageCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}
