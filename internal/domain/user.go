package domain

import (
	"fmt"
	"strings"
	"time"
)

// User represents the identity held by the active session.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar,omitempty"`
	MemberSince  time.Time `json:"member_since"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty"`
}

// Clone returns a copy of the user that callers may keep.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	copied := *u
	return &copied
}

// Provider identifies a social login provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
	ProviderLine   Provider = "line"
)

// Providers lists every supported social login provider.
var Providers = []Provider{ProviderGoogle, ProviderApple, ProviderLine}

// ParseProvider converts user input into a Provider.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}

	return "", fmt.Errorf("unknown provider %q", raw)
}

// DisplayName returns the branded placeholder name used for social accounts.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google User"
	case ProviderApple:
		return "Apple User"
	case ProviderLine:
		return "LINE User"
	default:
		return "User"
	}
}

// Language is a supported interface language.
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
	LanguageUzbek    Language = "uz"

	DefaultLanguage = LanguageJapanese
)

// ParseLanguage validates a language code.
func ParseLanguage(raw string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(raw))); l {
	case LanguageJapanese, LanguageEnglish, LanguageUzbek:
		return l, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}
