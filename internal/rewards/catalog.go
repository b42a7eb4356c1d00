// Package rewards decides when and how much to credit for user actions.
package rewards

import (
	"fmt"
	"strings"

	"github.com/Proton-105/ekilore-core/internal/domain"
)

// Key identifies a reward in the catalog.
type Key string

const (
	KeyRegistration  Key = "registration"
	KeyLogin         Key = "login"
	KeyDaily         Key = "daily"
	KeyProfile       Key = "profile"
	KeyFirstPurchase Key = "first_purchase"
	KeyReferral      Key = "referral"
	KeySurvey        Key = "survey"
	KeyPartnerVisit  Key = "partner_visit"
)

// Period is how often a reward may be claimed by the same user.
type Period string

const (
	PeriodOnce    Period = "once"
	PeriodDaily   Period = "daily"
	PeriodSession Period = "session"
	PeriodPartner Period = "partner"
)

// Reward is a fixed catalog entry. LabelKey, when set, names the localized
// label a Describer turns into the description.
type Reward struct {
	Key         Key                    `json:"key"`
	Amount      int64                  `json:"amount"`
	Kind        domain.TransactionKind `json:"kind"`
	Description string                 `json:"description"`
	LabelKey    string                 `json:"label_key,omitempty"`
	Period      Period                 `json:"period"`
	// Claimable rewards are user-initiated through Policy.Claim; the others
	// are granted by the login and registration flows.
	Claimable bool `json:"claimable"`
}

var catalog = []Reward{
	{Key: KeyRegistration, Amount: 500, Kind: domain.TransactionEarned, Description: "Registration Bonus 🎉", Period: PeriodOnce},
	{Key: KeyLogin, Amount: 10, Kind: domain.TransactionEarned, Description: "Daily Login Bonus 🌟", Period: PeriodSession},
	{Key: KeyDaily, Amount: 10, Kind: domain.TransactionEarned, Description: "Daily Login Claim", LabelKey: "rewards.labels.daily_login", Period: PeriodDaily, Claimable: true},
	{Key: KeyProfile, Amount: 50, Kind: domain.TransactionEarned, Description: "Profile Completion", LabelKey: "rewards.labels.complete_profile", Period: PeriodOnce, Claimable: true},
	{Key: KeyFirstPurchase, Amount: 100, Kind: domain.TransactionEarned, Description: "First Purchase Reward", LabelKey: "rewards.labels.first_purchase", Period: PeriodOnce, Claimable: true},
	{Key: KeyReferral, Amount: 100, Kind: domain.TransactionEarned, Description: "Referral Reward", LabelKey: "rewards.labels.refer_friends", Period: PeriodOnce, Claimable: true},
	{Key: KeySurvey, Amount: 30, Kind: domain.TransactionEarned, Description: "Survey Completion 📊", Period: PeriodDaily, Claimable: true},
	{Key: KeyPartnerVisit, Amount: 20, Kind: domain.TransactionEarned, Description: "Visited %s", Period: PeriodPartner, Claimable: true},
}

// Catalog returns every reward.
func Catalog() []Reward {
	return append([]Reward(nil), catalog...)
}

// Lookup finds a reward by key.
func Lookup(key Key) (Reward, bool) {
	for _, r := range catalog {
		if r.Key == key {
			return r, true
		}
	}
	return Reward{}, false
}

// ParseKey converts user input into a catalog key.
func ParseKey(raw string) (Key, error) {
	key := Key(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := Lookup(key); !ok {
		return "", fmt.Errorf("unknown reward %q", raw)
	}
	return key, nil
}

func (r Reward) describe(partner *Partner) string {
	if r.Key == KeyPartnerVisit && partner != nil {
		return fmt.Sprintf(r.Description, partner.Username)
	}
	return r.Description
}
