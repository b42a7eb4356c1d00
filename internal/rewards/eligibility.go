package rewards

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
	"github.com/Proton-105/ekilore-core/internal/idempotency"
)

const (
	// DefaultTimezone decides where a "day" starts for daily rewards.
	DefaultTimezone = "Asia/Tokyo"
	// DefaultRetention keeps expired daily and session records this long
	// past their period before pruning.
	DefaultRetention = 48 * time.Hour

	dayLayout = "2006-01-02"
)

// Status describes whether a reward can be claimed right now.
type Status struct {
	Reward         Reward    `json:"reward"`
	Partner        *Partner  `json:"partner,omitempty"`
	Eligible       bool      `json:"eligible"`
	ClaimedAt      time.Time `json:"claimed_at,omitempty"`
	NextEligibleAt time.Time `json:"next_eligible_at,omitempty"`
}

// subjectOf names whose claims a record belongs to. The email is stable
// across simulated logins, which mint a fresh user id each time.
func subjectOf(user *domain.User) string {
	if email := strings.ToLower(strings.TrimSpace(user.Email)); email != "" {
		return email
	}
	return user.ID
}

func periodKey(r Reward, user *domain.User, partner *Partner, now time.Time, loc *time.Location) string {
	switch r.Period {
	case PeriodDaily:
		return now.In(loc).Format(dayLayout)
	case PeriodSession:
		return fmt.Sprintf("session:%d", user.MemberSince.UnixNano())
	case PeriodPartner:
		if partner == nil {
			return "partner:"
		}
		return "partner:" + partner.ID
	default:
		return string(PeriodOnce)
	}
}

// startOfNextDay returns midnight after now in loc.
func startOfNextDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// nextEligible is when a claimed reward may be claimed again, or zero when
// never.
func nextEligible(r Reward, now time.Time, loc *time.Location) time.Time {
	if r.Period == PeriodDaily {
		return startOfNextDay(now, loc)
	}
	return time.Time{}
}

func expiresAt(r Reward, now time.Time, loc *time.Location, retention time.Duration) time.Time {
	switch r.Period {
	case PeriodDaily:
		return startOfNextDay(now, loc).Add(retention).UTC()
	case PeriodSession:
		return now.Add(retention).UTC()
	default:
		return time.Time{}
	}
}

func newRecord(r Reward, user *domain.User, partner *Partner, now time.Time, loc *time.Location, retention time.Duration) idempotency.Record {
	subject := subjectOf(user)
	period := periodKey(r, user, partner, now, loc)

	return idempotency.Record{
		Key:        idempotency.GenerateKey(subject, string(r.Key), period),
		Subject:    subject,
		Action:     string(r.Key),
		Period:     period,
		RecordedAt: now.UTC(),
		ExpiresAt:  expiresAt(r, now, loc, retention),
	}
}
