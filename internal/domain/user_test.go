package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProvider(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Provider
		wantErr  bool
	}{
		{name: "google", input: "google", expected: ProviderGoogle},
		{name: "mixed case apple", input: " Apple ", expected: ProviderApple},
		{name: "line", input: "LINE", expected: ProviderLine},
		{name: "unknown", input: "facebook", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseProvider(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestProviderDisplayName(t *testing.T) {
	assert.Equal(t, "Google User", ProviderGoogle.DisplayName())
	assert.Equal(t, "Apple User", ProviderApple.DisplayName())
	assert.Equal(t, "LINE User", ProviderLine.DisplayName())
}

func TestParseLanguage(t *testing.T) {
	l, err := ParseLanguage("EN")
	assert.NoError(t, err)
	assert.Equal(t, LanguageEnglish, l)

	_, err = ParseLanguage("fr")
	assert.Error(t, err)
}

func TestWalletConsistent(t *testing.T) {
	w := Wallet{Balance: 600, EarnedTotal: 500, PurchasedTotal: 200, SpentTotal: 100}
	assert.True(t, w.Consistent())

	w.Balance = 601
	assert.False(t, w.Consistent())
}

func TestTransactionKind(t *testing.T) {
	assert.True(t, TransactionEarned.IsCredit())
	assert.True(t, TransactionPurchased.IsCredit())
	assert.False(t, TransactionSpent.IsCredit())
	assert.True(t, TransactionSpent.Valid())
	assert.False(t, TransactionKind("refund").Valid())
}
