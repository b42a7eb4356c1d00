package session

import (
	"context"

	"github.com/Proton-105/ekilore-core/internal/domain"
)

//go:generate mockgen -destination=mock/authenticator.go -package=mock github.com/Proton-105/ekilore-core/internal/session Authenticator

// Profile is what an identity backend returns for a verified user. Empty
// fields are filled in by the Manager.
type Profile struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// RegisterRequest carries the registration form. The caller compares the
// password with its confirmation before calling Register.
type RegisterRequest struct {
	Name         string `validate:"required"`
	Email        string `validate:"required,email"`
	Password     string `validate:"required,min=4"`
	ReferralCode string
}

// Authenticator verifies identities. Failures are *errors.AppError values
// with codes InvalidCredentials, NetworkFailure or ProviderError; network
// failures are retried by the Manager.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Profile, error)
	Register(ctx context.Context, req RegisterRequest) (Profile, error)
	SocialLogin(ctx context.Context, provider domain.Provider) (Profile, error)
}
