package core

import (
	"context"
	"log/slog"

	"github.com/Proton-105/ekilore-core/internal/domain"
	"github.com/Proton-105/ekilore-core/internal/session"
)

// AuthResult is the outcome of a sign-in flow. A failed bonus does not fail
// the sign-in; it is reported in BonusError.
type AuthResult struct {
	User       *domain.User
	Bonus      *domain.Transaction
	BonusError error
}

// Login signs in and credits the login bonus.
func (c *Core) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := c.Session.Login(ctx, email, password)
	if err != nil {
		return AuthResult{}, err
	}
	return c.withBonus(ctx, user, c.Rewards.GrantLogin), nil
}

// Register creates an account and credits the registration bonus.
func (c *Core) Register(ctx context.Context, req session.RegisterRequest) (AuthResult, error) {
	user, err := c.Session.Register(ctx, req)
	if err != nil {
		return AuthResult{}, err
	}
	return c.withBonus(ctx, user, c.Rewards.GrantRegistration), nil
}

// SocialLogin signs in through provider. signUp selects the registration
// bonus instead of the login bonus.
func (c *Core) SocialLogin(ctx context.Context, provider domain.Provider, signUp bool) (AuthResult, error) {
	user, err := c.Session.SocialLogin(ctx, provider)
	if err != nil {
		return AuthResult{}, err
	}

	grant := c.Rewards.GrantLogin
	if signUp {
		grant = c.Rewards.GrantRegistration
	}
	return c.withBonus(ctx, user, grant), nil
}

// Logout ends the session. The wallet and claim records are kept.
func (c *Core) Logout(ctx context.Context) error {
	return c.Session.Logout(ctx)
}

func (c *Core) withBonus(ctx context.Context, user *domain.User, grant func(context.Context) (domain.Transaction, error)) AuthResult {
	res := AuthResult{User: user}

	tx, err := grant(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "sign-in bonus not credited",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		res.BonusError = err
		return res
	}

	res.Bonus = &tx
	return res
}
