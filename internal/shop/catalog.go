package shop

import (
	"math"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
)

// ContentType is the media kind of a catalog item.
type ContentType string

const (
	ContentArticle  ContentType = "article"
	ContentVideo    ContentType = "video"
	ContentDocument ContentType = "document"
	ContentImage    ContentType = "image"
)

// Content is a downloadable item. Items with a zero price are free.
type Content struct {
	ID            int         `json:"id"`
	Title         string      `json:"title"`
	TitleJa       string      `json:"title_ja"`
	Description   string      `json:"description"`
	DescriptionJa string      `json:"description_ja"`
	Type          ContentType `json:"type"`
	Views         int         `json:"views"`
	Downloads     int         `json:"downloads"`
	Price         int64       `json:"token_price,omitempty"`
	Author        string      `json:"author"`
	Published     string      `json:"date"`
}

func (c Content) Premium() bool { return c.Price > 0 }

// LocalizedTitle returns the Japanese title for ja and the English one
// otherwise.
func (c Content) LocalizedTitle(lang domain.Language) string {
	if lang == domain.LanguageJapanese && c.TitleJa != "" {
		return c.TitleJa
	}
	return c.Title
}

func (c Content) LocalizedDescription(lang domain.Language) string {
	if lang == domain.LanguageJapanese && c.DescriptionJa != "" {
		return c.DescriptionJa
	}
	return c.Description
}

// Contest is an open competition. Joining has no ledger effect.
type Contest struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	TitleJa       string `json:"title_ja"`
	Description   string `json:"description"`
	DescriptionJa string `json:"description_ja"`
	PrizePool     int64  `json:"prize_pool"`
	Participants  int    `json:"participants"`
	EndDate       string `json:"end_date"`
	RequiresAuth  bool   `json:"requires_auth"`
}

func (c Contest) LocalizedTitle(lang domain.Language) string {
	if lang == domain.LanguageJapanese && c.TitleJa != "" {
		return c.TitleJa
	}
	return c.Title
}

// DaysRemaining rounds up the days until the end date (UTC midnight). It is
// negative once the contest has ended.
func (c Contest) DaysRemaining(now time.Time) int {
	end, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

var contents = []Content{
	{ID: 1, Title: "Introduction to Japanese Culture", TitleJa: "日本文化入門",
		Description: "Discover the rich traditions and customs of Japan", DescriptionJa: "日本の豊かな伝統と習慣を発見",
		Type: ContentArticle, Views: 1250, Downloads: 340, Author: "EKILORE Team", Published: "2026-02-10"},
	{ID: 2, Title: "Japanese Cooking Basics", TitleJa: "日本料理の基礎",
		Description: "Learn fundamental Japanese cooking techniques", DescriptionJa: "基本的な日本料理のテクニックを学ぶ",
		Type: ContentVideo, Views: 2100, Downloads: 567, Author: "Chef Tanaka", Published: "2026-02-12"},
	{ID: 3, Title: "Tokyo Travel Guide PDF", TitleJa: "東京旅行ガイドPDF",
		Description: "Complete guide to exploring Tokyo", DescriptionJa: "東京を探索するための完全ガイド",
		Type: ContentDocument, Views: 980, Downloads: 423, Author: "Travel Expert", Published: "2026-02-08"},
	{ID: 4, Title: "Cherry Blossom Wallpapers", TitleJa: "桜の壁紙",
		Description: "Beautiful sakura season photos", DescriptionJa: "美しい桜の季節の写真",
		Type: ContentImage, Views: 3400, Downloads: 1200, Author: "Photo Collection", Published: "2026-02-15"},
	{ID: 5, Title: "Advanced Japanese Business Etiquette", TitleJa: "上級日本ビジネスマナー",
		Description: "Master professional Japanese business culture", DescriptionJa: "プロフェッショナルな日本のビジネス文化をマスター",
		Type: ContentArticle, Views: 890, Downloads: 156, Price: 50, Author: "Business Expert", Published: "2026-02-14"},
	{ID: 6, Title: "Japanese Language Masterclass", TitleJa: "日本語マスタークラス",
		Description: "Complete video course for fluency", DescriptionJa: "流暢さのための完全なビデオコース",
		Type: ContentVideo, Views: 1560, Downloads: 234, Price: 100, Author: "Language Teacher", Published: "2026-02-16"},
	{ID: 7, Title: "Premium Japan Investment Guide", TitleJa: "プレミアム日本投資ガイド",
		Description: "Exclusive market analysis and strategies", DescriptionJa: "独占的な市場分析と戦略",
		Type: ContentDocument, Views: 567, Downloads: 89, Price: 150, Author: "Finance Pro", Published: "2026-02-17"},
	{ID: 8, Title: "4K Japan Scenery Collection", TitleJa: "4K日本風景コレクション",
		Description: "Ultra HD photos of Japanese landscapes", DescriptionJa: "日本の風景の超HD写真",
		Type: ContentImage, Views: 2300, Downloads: 345, Price: 75, Author: "Pro Photographer", Published: "2026-02-13"},
}

var contests = []Contest{
	{ID: 1, Title: "Photography Contest: Japanese Beauty", TitleJa: "写真コンテスト：日本の美",
		Description: "Share your best photos capturing Japanese aesthetics", DescriptionJa: "日本の美学を捉えたあなたのベストショットを共有",
		PrizePool: 5000, Participants: 342, EndDate: "2026-03-15"},
	{ID: 2, Title: "Creative Writing: My Japan Story", TitleJa: "クリエイティブライティング：私の日本物語",
		Description: "Write a short story inspired by Japanese culture", DescriptionJa: "日本文化にインスパイアされた短編を書く",
		PrizePool: 3000, Participants: 189, EndDate: "2026-03-20"},
	{ID: 3, Title: "Premium Video Contest: Japan Travel Vlog", TitleJa: "プレミアムビデオコンテスト：日本旅行Vlog",
		Description: "Create the best Japan travel vlog (members only)", DescriptionJa: "最高の日本旅行Vlogを作成（メンバー限定）",
		PrizePool: 10000, Participants: 67, EndDate: "2026-04-01", RequiresAuth: true},
	{ID: 4, Title: "Exclusive Art Contest: Anime Style", TitleJa: "限定アートコンテスト：アニメスタイル",
		Description: "Submit your anime-inspired artwork", DescriptionJa: "アニメインスパイアされたアートワークを提出",
		PrizePool: 7500, Participants: 134, EndDate: "2026-03-25", RequiresAuth: true},
	{ID: 5, Title: "Members Challenge: Japanese Recipe", TitleJa: "メンバーチャレンジ：日本料理レシピ",
		Description: "Share your unique Japanese recipe creation", DescriptionJa: "あなたのユニークな日本料理レシピを共有",
		PrizePool: 4000, Participants: 98, EndDate: "2026-03-30", RequiresAuth: true},
}

// Contents returns the whole content catalog, free items first.
func Contents() []Content {
	return append([]Content(nil), contents...)
}

// FreeContents and PremiumContents split the catalog by price.
func FreeContents() []Content { return filterContents(false) }

func PremiumContents() []Content { return filterContents(true) }

func filterContents(premium bool) []Content {
	out := make([]Content, 0, len(contents))
	for _, c := range contents {
		if c.Premium() == premium {
			out = append(out, c)
		}
	}
	return out
}

func FindContent(id int) (Content, bool) {
	for _, c := range contents {
		if c.ID == id {
			return c, true
		}
	}
	return Content{}, false
}

// Contests returns open contests, public ones first.
func Contests() []Contest {
	return append([]Contest(nil), contests...)
}

func FindContest(id int) (Contest, bool) {
	for _, c := range contests {
		if c.ID == id {
			return c, true
		}
	}
	return Contest{}, false
}
