package rewards

import "strings"

// Partner is a creator whose profile visit earns tokens.
type Partner struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Followers    string `json:"followers"`
	Bio          string `json:"bio"`
	InstagramURL string `json:"instagram_url"`
}

var partners = []Partner{
	{ID: "sakura_content", Name: "Sakura Content", Username: "@sakura_content", Followers: "125K",
		Bio: "Japanese lifestyle & culture enthusiast sharing daily inspiration", InstagramURL: "https://instagram.com/sakura_content"},
	{ID: "tokyo_vibes", Name: "Tokyo Vibes", Username: "@tokyo_vibes", Followers: "98K",
		Bio: "Content creator sharing Japanese experiences and hidden gems", InstagramURL: "https://instagram.com/tokyo_vibes"},
	{ID: "nihon_traditions", Name: "Nihon Traditions", Username: "@nihon_traditions", Followers: "156K",
		Bio: "Exploring and preserving Japanese traditions for the modern world", InstagramURL: "https://instagram.com/nihon_traditions"},
	{ID: "ramen_and_travel", Name: "Ramen & Travel", Username: "@ramen_and_travel", Followers: "203K",
		Bio: "Japanese food & travel blogger exploring authentic culinary experiences", InstagramURL: "https://instagram.com/ramen_and_travel"},
	{ID: "anime_soul", Name: "Anime Soul", Username: "@anime_soul", Followers: "187K",
		Bio: "Anime & manga passionate creator bringing stories to life", InstagramURL: "https://instagram.com/anime_soul"},
}

// Partners returns the partner directory.
func Partners() []Partner {
	return append([]Partner(nil), partners...)
}

// FindPartner matches an id or @username.
func FindPartner(ref string) (Partner, bool) {
	ref = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ref), "@"))
	for _, p := range partners {
		if p.ID == ref {
			return p, true
		}
	}
	return Partner{}, false
}
