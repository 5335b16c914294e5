// Package i18n resolves the request locale and looks up localized messages
// from the embedded catalogs.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"github.com/iwvelando/calculator-hub/pkg/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var catalogFS embed.FS

// Bundle holds the catalogs for the supported locales.
type Bundle struct {
	defaultLocale string
	locales       []string
	tags          map[string]language.Tag
	matcher       language.Matcher
	messages      map[string]map[string]string
}

// Load reads the embedded catalog of every supported locale. The default
// locale must be among them.
func Load(supported []string, defaultLocale string) (*Bundle, error) {
	defaultLocale = strings.ToLower(strings.TrimSpace(defaultLocale))
	b := &Bundle{
		defaultLocale: defaultLocale,
		tags:          make(map[string]language.Tag),
		messages:      make(map[string]map[string]string),
	}

	// The default locale goes first so the matcher falls back to it.
	ordered := []string{defaultLocale}
	for _, l := range supported {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && l != defaultLocale {
			ordered = append(ordered, l)
		}
	}

	matchTags := make([]language.Tag, 0, len(ordered))
	for _, locale := range ordered {
		if _, seen := b.messages[locale]; seen {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		msgs, err := readCatalog(locale)
		if err != nil {
			return nil, err
		}
		b.locales = append(b.locales, locale)
		b.tags[locale] = tag
		b.messages[locale] = msgs
		matchTags = append(matchTags, tag)
	}
	b.matcher = language.NewMatcher(matchTags)
	return b, nil
}

func readCatalog(locale string) (map[string]string, error) {
	raw, err := catalogFS.ReadFile("locales/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no message catalog for locale %q: %w", locale, err)
	}
	msgs := make(map[string]string)
	if err := yaml.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse message catalog for %q: %w", locale, err)
	}
	return msgs, nil
}

// Default returns the default locale.
func (b *Bundle) Default() string { return b.defaultLocale }

// Locales returns the supported locales, default first.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.locales...)
}

// Supported reports whether locale has a catalog.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.messages[strings.ToLower(locale)]
	return ok
}

// Resolve picks the locale for a request. A locale taken from the URL path
// must be supported exactly; with no path locale the Accept-Language header
// is matched, falling back to the default.
func (b *Bundle) Resolve(pathLocale, acceptLanguage string) (string, bool) {
	if pathLocale != "" {
		locale := strings.ToLower(pathLocale)
		return locale, b.Supported(locale)
	}
	if acceptLanguage == "" {
		return b.defaultLocale, true
	}
	_, index := language.MatchStrings(b.matcher, acceptLanguage)
	return b.locales[index], true
}

// Tag returns the language tag for locale, or the default's.
func (b *Bundle) Tag(locale string) language.Tag {
	if tag, ok := b.tags[strings.ToLower(locale)]; ok {
		return tag
	}
	return b.tags[b.defaultLocale]
}

// T returns the message for key in locale. Missing keys fall back to the
// default locale and then to the key itself. Args are formatted with the
// locale's number conventions.
func (b *Bundle) T(locale, key string, args ...interface{}) string {
	locale = strings.ToLower(locale)
	msg, ok := b.messages[locale][key]
	if !ok {
		msg, ok = b.messages[b.defaultLocale][key]
	}
	if !ok {
		msg = key
	}
	if len(args) == 0 {
		return msg
	}
	return message.NewPrinter(b.Tag(locale)).Sprintf(msg, args...)
}

// Has reports whether key exists in locale or the default locale.
func (b *Bundle) Has(locale, key string) bool {
	if _, ok := b.messages[strings.ToLower(locale)][key]; ok {
		return true
	}
	_, ok := b.messages[b.defaultLocale][key]
	return ok
}

// ValidationMessage renders a field validation failure, e.g. "Interest rate
// is out of range".
func (b *Bundle) ValidationMessage(locale string, err *validation.Error) string {
	field := err.Field
	if b.Has(locale, "field."+field) {
		field = b.T(locale, "field."+field)
	}
	return b.T(locale, "validation."+err.Reason, field)
}
