// Package i18n holds the user-facing strings of dyntree in every supported
// language and picks one from configuration or the environment.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	KeyLoading     = "Loading..."
	KeyNoChildren  = "(no children)"
	KeyLoadFailed  = "failed to load: %v"
	KeyListings    = "%d listings cached"
	KeyRequests    = "%d source requests"
	KeyFailures    = "%d failed"
	KeyQuitHint    = "press q to quit"
	KeyRootFailure = "Could not load the tree: %v"
)

//nolint:gochecknoglobals // Supported languages, in preference order.
var supported = []language.Tag{language.English, language.Russian}

//nolint:gochecknoglobals // Built once; read-only afterwards.
var (
	matcher = language.NewMatcher(supported)
	cat     = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	en := map[string]string{
		KeyLoading:     "Loading...",
		KeyNoChildren:  "(no children)",
		KeyLoadFailed:  "failed to load: %v",
		KeyQuitHint:    "press q to quit",
		KeyRootFailure: "Could not load the tree: %v",
	}
	ru := map[string]string{
		KeyLoading:     "Идёт загрузка...",
		KeyNoChildren:  "(нет дочерних элементов)",
		KeyLoadFailed:  "не удалось загрузить: %v",
		KeyQuitHint:    "q для выхода",
		KeyRootFailure: "Не удалось загрузить дерево: %v",
	}
	for k, v := range en {
		_ = b.SetString(language.English, k, v)
	}
	for k, v := range ru {
		_ = b.SetString(language.Russian, k, v)
	}

	_ = b.Set(language.English, KeyListings, plural.Selectf(1, "%d",
		"one", "%d listing cached",
		"other", "%d listings cached"))
	_ = b.Set(language.English, KeyRequests, plural.Selectf(1, "%d",
		"one", "%d source request",
		"other", "%d source requests"))
	_ = b.SetString(language.English, KeyFailures, "%d failed")

	_ = b.Set(language.Russian, KeyListings, plural.Selectf(1, "%d",
		"one", "%d список в кэше",
		"few", "%d списка в кэше",
		"other", "%d списков в кэше"))
	_ = b.Set(language.Russian, KeyRequests, plural.Selectf(1, "%d",
		"one", "%d запрос к источнику",
		"few", "%d запроса к источнику",
		"other", "%d запросов к источнику"))
	_ = b.Set(language.Russian, KeyFailures, plural.Selectf(1, "%d",
		"one", "%d ошибка",
		"few", "%d ошибки",
		"other", "%d ошибок"))
	return b
}

// Printer renders messages in one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// New returns a printer for the supported language closest to lang. An
// empty or unknown lang yields English.
func New(lang string) *Printer {
	tag := Match(lang)
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Match maps a language name ("ru", "ru-RU", "ru_RU.UTF-8") to a supported
// tag.
func Match(lang string) language.Tag {
	lang = normalize(lang)
	if lang == "" {
		return language.English
	}
	t, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Detect returns configured when set, otherwise the language from LC_ALL,
// LC_MESSAGES or LANG.
func Detect(configured string) string {
	if configured != "" {
		return configured
	}
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// Supported lists the language codes with translations.
func Supported() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = t.String()
	}
	return out
}

// Tag returns the printer's language.
func (p *Printer) Tag() language.Tag {
	return p.tag
}

// Sprintf formats the message stored under key.
func (p *Printer) Sprintf(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Loading is the waiting message shown while children are fetched.
func (p *Printer) Loading() string {
	return p.p.Sprintf(KeyLoading)
}

// Number formats n with the language's digit grouping.
func (p *Printer) Number(n int64) string {
	return p.p.Sprintf("%d", n)
}

func normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "C" || lang == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(lang, "_", "-")
}
