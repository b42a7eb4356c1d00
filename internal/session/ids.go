package session

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nrednav/cuid2"
)

const (
	referralPrefix       = "USER"
	referralSuffixLength = 8
)

var referralSuffix = mustReferralGenerator()

func mustReferralGenerator() func() string {
	generate, err := cuid2.Init(cuid2.WithLength(referralSuffixLength))
	if err != nil {
		panic(err)
	}
	return generate
}

func newUserID() string {
	return uuid.NewString()
}

// NewReferralCode returns "USER" followed by eight random upper-case
// characters.
func NewReferralCode() string {
	return referralPrefix + strings.ToUpper(referralSuffix())
}
