package rewards

import "fmt"

// TokenPackage is a purchasable bundle. Prices are for display only.
type TokenPackage struct {
	ID           string `json:"id"`
	Tokens       int64  `json:"tokens"`
	BonusPercent int64  `json:"bonus_percent"`
	PriceCents   int64  `json:"price_cents"`
	BestValue    bool   `json:"best_value"`
}

var packages = []TokenPackage{
	{ID: "tokens-1000", Tokens: 1000, BonusPercent: 0, PriceCents: 220},
	{ID: "tokens-5000", Tokens: 5000, BonusPercent: 10, PriceCents: 1000, BestValue: true},
	{ID: "tokens-10000", Tokens: 10000, BonusPercent: 15, PriceCents: 1800},
	{ID: "tokens-25000", Tokens: 25000, BonusPercent: 20, PriceCents: 4000},
}

// Packages returns the package catalog.
func Packages() []TokenPackage {
	return append([]TokenPackage(nil), packages...)
}

// FindPackage looks a package up by id, or by its token count ("5000").
func FindPackage(ref string) (TokenPackage, bool) {
	for _, p := range packages {
		if p.ID == ref || fmt.Sprint(p.Tokens) == ref {
			return p, true
		}
	}
	return TokenPackage{}, false
}

// Total is the credited amount including the bonus, rounded down.
func (p TokenPackage) Total() int64 {
	return p.Tokens + p.Tokens*p.BonusPercent/100
}

// Description is the ledger label for a purchase of p.
func (p TokenPackage) Description() string {
	return fmt.Sprintf("Purchased %d tokens (+%d%% bonus)", p.Tokens, p.BonusPercent)
}

// PriceLabel formats the price in US dollars.
func (p TokenPackage) PriceLabel() string {
	return fmt.Sprintf("$%d.%02d", p.PriceCents/100, p.PriceCents%100)
}
