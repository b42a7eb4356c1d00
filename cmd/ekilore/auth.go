package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Proton-105/ekilore-core/internal/core"
	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/session"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if password == "" {
				pw, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			res, err := a.core.Login(ctx, email, password)
			if err != nil {
				return err
			}
			a.printAuth(res, "auth.welcome_back")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password; prompted when omitted")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var req session.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if req.Password == "" {
				pw, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				confirm, err := promptPassword(cmd.ErrOrStderr(), "Confirm password: ")
				if err != nil {
					return err
				}
				if pw != confirm {
					a.printf("auth.password_mismatch")
					return errReported
				}
				req.Password = pw
			}

			res, err := a.core.Register(ctx, req)
			if err != nil {
				return err
			}
			a.printAuth(res, "auth.welcome_new")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "Display name (required)")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email (required)")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password; prompted twice when omitted")
	cmd.Flags().StringVar(&req.ReferralCode, "referral", "", "Referral code of the inviting user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newSocialCmd(opts *globalOptions) *cobra.Command {
	var signUp bool

	cmd := &cobra.Command{
		Use:       "social PROVIDER",
		Short:     "Sign in with google, apple or line",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"google", "apple", "line"},
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			provider, err := domain.ParseProvider(args[0])
			if err != nil {
				return apperrors.NewValidationError(err.Error())
			}

			res, err := a.core.SocialLogin(ctx, provider, signUp)
			if err != nil {
				return err
			}

			key := "auth.welcome_back"
			if signUp {
				key = "auth.welcome_new"
			}
			a.printAuth(res, key)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&signUp, "sign-up", false, "Treat as a new account and credit the registration bonus")

	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, _ []string) error {
			if err := a.core.Logout(ctx); err != nil {
				return err
			}
			a.printf("auth.logged_out")
			return nil
		}),
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: run(opts, func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
			user, ok := a.core.Session.CurrentUser()
			if !ok {
				a.printf("auth.anonymous")
				return nil
			}

			a.printf("auth.signed_in", user.Email)
			fmt.Fprintf(a.out, "  id:           %s\n", user.ID)
			fmt.Fprintf(a.out, "  name:         %s\n", user.Name)
			fmt.Fprintf(a.out, "  member since: %s\n", user.MemberSince.Format("2006-01-02"))
			fmt.Fprintf(a.out, "  referral:     %s\n", user.ReferralCode)
			return nil
		}),
	}
}

func (a *app) printAuth(res core.AuthResult, welcomeKey string) {
	a.printf("auth.signed_in", res.User.Email)
	if res.Bonus != nil {
		a.printf(welcomeKey, res.Bonus.Amount)
	}
}
