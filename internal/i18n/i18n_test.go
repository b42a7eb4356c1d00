package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	m, err := Load("ja")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "ja", "uz"}, m.Languages())

	en := m.Translator("en")
	assert.Equal(t, "en", en.Lang())
	assert.Equal(t, "Insufficient tokens. You need 50 tokens.", en.Tf("errors.insufficient_balance", int64(50)))
	assert.Equal(t, "🎁 +20 tokens for visiting @anime_soul!", en.Tf("rewards.partner_visited", 20, "@anime_soul"))

	ja := m.Translator("ja")
	assert.Equal(t, "🎁 @anime_soulを訪問して+20トークン！", ja.Tf("rewards.partner_visited", 20, "@anime_soul"))
}

func TestLocalesShareKeys(t *testing.T) {
	m, err := Load("ja")
	require.NoError(t, err)

	reference := m.translations["en"]
	require.NotEmpty(t, reference)

	for _, lang := range m.Languages() {
		for key := range reference {
			_, ok := m.translations[lang][key]
			assert.True(t, ok, "%s is missing %s", lang, key)
		}
	}
}

func TestTranslatorFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/ja.yaml":   {Data: []byte("ja:\n  greeting: \"こんにちは\"\n  only_ja: \"日本語のみ\"\n")},
		"loc/en.yml":    {Data: []byte("en:\n  greeting: \"Hello %s\"\n")},
		"loc/notes.txt": {Data: []byte("ignored")},
	}

	m, err := LoadFS(fsys, "loc", "ja")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		lang     string
		key      string
		args     []any
		expected string
	}{
		{name: "direct", lang: "en", key: "greeting", args: []any{"Taro"}, expected: "Hello Taro"},
		{name: "falls back to default language", lang: "en", key: "only_ja", expected: "日本語のみ"},
		{name: "unknown language uses default", lang: "fr", key: "greeting", expected: "こんにちは"},
		{name: "missing key returned verbatim", lang: "en", key: "nope.nothing", args: []any{1}, expected: "nope.nothing"},
		{name: "empty key", lang: "en", key: "  ", expected: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, m.Translator(tc.lang).Tf(tc.key, tc.args...))
		})
	}
}

func TestLoadFSErrors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"loc/readme.md": {Data: []byte("x")}}, "loc", "ja")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"loc/en.yaml": {Data: []byte("en:\n  a: \"b\"\n")}}, "loc", "ja")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"loc/ja.yaml": {Data: []byte("ja: [unclosed")}}, "loc", "ja")
	assert.Error(t, err)
}
