// Package session owns the single authenticated identity of the client.
package session

import (
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
)

// State represents a session state machine state.
type State string

const (
	// StateAnonymous means no user is signed in.
	StateAnonymous State = "anonymous"
	// StateAuthenticated means exactly one user is held by the session.
	StateAuthenticated State = "authenticated"
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe transitions.
// Every move between the two states is valid: signing in again replaces the
// user and logging out while anonymous still succeeds.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// AuthSnapshot is the persisted form of the session.
type AuthSnapshot struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	UpdatedAt       time.Time    `json:"updated_at,omitempty"`
}

// Normalize returns the snapshot with its flag consistent with the user:
// an authenticated snapshot without a user is anonymous.
func (s AuthSnapshot) Normalize() AuthSnapshot {
	if s.User == nil || s.User.ID == "" {
		return AuthSnapshot{UpdatedAt: s.UpdatedAt}
	}
	if !s.IsAuthenticated {
		return AuthSnapshot{UpdatedAt: s.UpdatedAt}
	}

	s.User = s.User.Clone()
	return s
}

// State returns the state the snapshot restores into.
func (s AuthSnapshot) State() State {
	if s.Normalize().IsAuthenticated {
		return StateAuthenticated
	}
	return StateAnonymous
}

// legacyAuth is the auth record written by the web client, which used
// camelCase keys and no envelope.
type legacyAuth struct {
	User            *legacyUser `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

type legacyUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	MemberSince  time.Time `json:"memberSince"`
	ReferralCode string    `json:"referralCode"`
	ReferredBy   string    `json:"referredBy"`
}

func (la legacyAuth) snapshot() AuthSnapshot {
	snap := AuthSnapshot{IsAuthenticated: la.IsAuthenticated}
	if u := la.User; u != nil {
		snap.User = &domain.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			AvatarURL:    u.Avatar,
			MemberSince:  u.MemberSince.UTC(),
			ReferralCode: u.ReferralCode,
			ReferredBy:   u.ReferredBy,
		}
	}
	return snap
}
