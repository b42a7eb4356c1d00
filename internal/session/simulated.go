package session

import (
	"context"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
)

const (
	// DefaultAuthDelay mirrors the latency of the hosted mock backend.
	DefaultAuthDelay = time.Second

	simulatedLoginName = "ユーザー様"
	placeholderAvatar  = "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=200"
)

// Simulated accepts every request after a fixed delay.
type Simulated struct {
	Delay time.Duration
}

// NewSimulated returns a Simulated authenticator. A negative delay means
// DefaultAuthDelay.
func NewSimulated(delay time.Duration) *Simulated {
	if delay < 0 {
		delay = DefaultAuthDelay
	}
	return &Simulated{Delay: delay}
}

func (s *Simulated) Login(ctx context.Context, email, _ string) (Profile, error) {
	if err := wait(ctx, s.Delay); err != nil {
		return Profile{}, err
	}

	return Profile{
		Name:      simulatedLoginName,
		Email:     email,
		AvatarURL: placeholderAvatar,
	}, nil
}

func (s *Simulated) Register(ctx context.Context, req RegisterRequest) (Profile, error) {
	if err := wait(ctx, s.Delay); err != nil {
		return Profile{}, err
	}

	return Profile{
		Name:  req.Name,
		Email: req.Email,
	}, nil
}

func (s *Simulated) SocialLogin(ctx context.Context, provider domain.Provider) (Profile, error) {
	if err := wait(ctx, s.Delay); err != nil {
		return Profile{}, err
	}

	return socialProfile(provider), nil
}

func socialProfile(provider domain.Provider) Profile {
	return Profile{
		Name:      provider.DisplayName(),
		Email:     "user@" + string(provider) + ".com",
		AvatarURL: placeholderAvatar,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
