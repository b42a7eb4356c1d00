// Package i18n serves the user-facing strings in every supported language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

const (
	embeddedDir     = "locales"
	defaultLanguage = "ja"
)

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Tf(key string, args ...any) string
	Lang() string
}

// messages maps a flattened key such as "errors.storage" to its text.
type messages map[string]string

// Manager stores all available translations.
type Manager struct {
	translations map[string]messages
	defaultLang  string
}

// Load loads the locales compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, embeddedDir, defaultLang)
}

// LoadFS loads every *.yaml and *.yml file in dir. Each file holds one or
// more top-level language keys.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = defaultLanguage
	}

	files, err := localeFiles(fsys, dir)
	if err != nil {
		return nil, err
	}

	translations := make(map[string]messages)
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
		}

		for lang, tree := range doc {
			lang = strings.ToLower(strings.TrimSpace(lang))
			section, ok := tree.(map[string]any)
			if lang == "" || !ok {
				continue
			}
			if translations[lang] == nil {
				translations[lang] = make(messages)
			}
			translations[lang].add("", section)
		}
	}

	if _, ok := translations[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: translations, defaultLang: defaultLang}, nil
}

func localeFiles(fsys fs.FS, dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("i18n: list %s: %w", dir, err)
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}

	sort.Strings(files)
	return files, nil
}

// add flattens a nested YAML section into dot-separated keys. Non-string
// leaves are ignored.
func (m messages) add(prefix string, section map[string]any) {
	for key, value := range section {
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			m[key] = v
		case map[string]any:
			m.add(key, v)
		}
	}
}

// Translator returns a translator for lang, or for the default language
// when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := m.translations[lang]; !ok {
		lang = m.defaultLang
	}

	return translator{
		lang:     lang,
		primary:  m.translations[lang],
		fallback: m.translations[m.defaultLang],
	}
}

// Languages returns all loaded languages, sorted.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	langs := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

type translator struct {
	lang     string
	primary  messages
	fallback messages
}

func (t translator) Lang() string { return t.lang }

// T looks key up in the translator's language, then the default language.
// A missing key is returned as is.
func (t translator) T(key string) string {
	text, _ := t.lookup(key)
	return text
}

// Tf formats the translation with args. Missing keys come back verbatim.
func (t translator) Tf(key string, args ...any) string {
	text, ok := t.lookup(key)
	if !ok || len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func (t translator) lookup(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}

	if text, ok := t.primary[key]; ok {
		return text, true
	}
	if text, ok := t.fallback[key]; ok {
		return text, true
	}
	return key, false
}
