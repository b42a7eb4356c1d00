package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLanguageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "language [ja|en|uz]",
		Short:     "Show or change the display language",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"ja", "en", "uz"},
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(a.out, a.core.Preferences.Language())
				return nil
			}

			lang, err := a.core.Preferences.SetLanguage(ctx, args[0])
			if err != nil {
				return err
			}
			a.printf("language.changed", lang)
			return nil
		}),
	}
}
