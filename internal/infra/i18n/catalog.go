// Package i18n loads the message catalogs once at start-up. A Catalog is
// never mutated after construction and is safe for concurrent readers.
package i18n

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"portal/config"
	"portal/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Catalog holds flattened messages per locale, e.g. messages["es"]["page.signIn"].
type Catalog struct {
	defaultLocale string
	locales       []string
	messages      map[string]map[string]string
	matcher       language.Matcher
}

var _ service.Translator = (*Catalog)(nil)

// NewCatalog builds the catalog from the embedded locale files.
func NewCatalog(cfg *config.Config) (*Catalog, error) {
	defaultLocale := "en"
	if cfg.I18n != nil && cfg.I18n.DefaultLocale != "" {
		defaultLocale = cfg.I18n.DefaultLocale
	}

	sub, err := fs.Sub(localesFS, "locales")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return Load(sub, defaultLocale)
}

// Load reads every <locale>.yaml in fsys. The default locale must be present.
func Load(fsys fs.FS, defaultLocale string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	messages := make(map[string]map[string]string, len(files))
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", file)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, errors.Wrapf(err, "parse %s", file)
		}

		flat := make(map[string]string)
		if err := flatten("", tree, flat); err != nil {
			return nil, errors.Wrapf(err, "parse %s", file)
		}

		messages[strings.TrimSuffix(path.Base(file), ".yaml")] = flat
	}

	if _, ok := messages[defaultLocale]; !ok {
		return nil, errors.Errorf("default locale %q has no catalog", defaultLocale)
	}

	// The default locale goes first so the matcher falls back to it.
	locales := make([]string, 0, len(messages))
	locales = append(locales, defaultLocale)
	for locale := range messages {
		if locale != defaultLocale {
			locales = append(locales, locale)
		}
	}
	slices.Sort(locales[1:])

	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, errors.Wrapf(err, "locale %q", locale)
		}
		tags = append(tags, tag)
	}

	return &Catalog{
		defaultLocale: defaultLocale,
		locales:       locales,
		messages:      messages,
		matcher:       language.NewMatcher(tags),
	}, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]any:
			if err := flatten(full, v, out); err != nil {
				return err
			}
		default:
			return errors.Errorf("key %q: unsupported value type %T", full, value)
		}
	}

	return nil
}

// DefaultLocale returns the fallback locale.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// Locales lists the supported locales, default first.
func (c *Catalog) Locales() []string {
	return slices.Clone(c.locales)
}

// Supports reports whether locale has its own catalog.
func (c *Catalog) Supports(locale string) bool {
	_, ok := c.messages[locale]

	return ok
}

// T resolves key in locale, then in the default locale, then returns the key
// itself. {name} placeholders are replaced from params.
func (c *Catalog) T(locale, key string, params map[string]string) string {
	msg, ok := c.messages[locale][key]
	if !ok {
		msg, ok = c.messages[c.defaultLocale][key]
	}
	if !ok {
		msg = key
	}

	if len(params) == 0 {
		return msg
	}

	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", value)
	}

	return strings.NewReplacer(pairs...).Replace(msg)
}

// Negotiate picks a supported locale. An explicit preference (the lang
// cookie) wins when supported; otherwise the Accept-Language header is matched.
func (c *Catalog) Negotiate(preferred, acceptLanguage string) string {
	if c.Supports(preferred) {
		return preferred
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.defaultLocale
	}

	_, index, confidence := c.matcher.Match(tags...)
	if confidence == language.No {
		return c.defaultLocale
	}

	return c.locales[index]
}
