package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/de_DE"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/it"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed messages/*.yaml
var defaultMessages embed.FS

const bundlePrefix = "messages_"

// knownLocales lists the locales a bundle file may be provided for.
var knownLocales = map[string]func() locales.Translator{
	"en":    en.New,
	"en_US": en_US.New,
	"en_GB": en_GB.New,
	"de":    de.New,
	"de_DE": de_DE.New,
	"fr":    fr.New,
	"es":    es.New,
	"it":    it.New,
}

// Catalog holds the message bundles of all configured locales. It is built
// once and read-only afterwards.
type Catalog struct {
	uni       *ut.UniversalTranslator
	templates map[string]map[string]template
}

// DefaultCatalog returns the catalog of the bundles shipped with the module.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultMessages, "messages")
}

// LoadCatalog reads every messages_<locale>.yaml file in dir. Each file maps
// message keys to templates with positional placeholders {0}, {1}, ...
// A bundle for DefaultLocale is required.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	files, err := fs.Glob(fsys, path.Join(dir, bundlePrefix+"*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list message bundles: %w", err)
	}

	c := newCatalog()
	for _, file := range files {
		key := strings.TrimSuffix(strings.TrimPrefix(path.Base(file), bundlePrefix), ".yaml")
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read message bundle %s: %w", file, err)
		}
		var messages map[string]string
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("parse message bundle %s: %w", file, err)
		}
		if err := c.add(key, messages); err != nil {
			return nil, fmt.Errorf("message bundle %s: %w", file, err)
		}
	}

	if !c.Available(DefaultLocale) {
		return nil, fmt.Errorf("no message bundle for default locale %s in %s", DefaultLocale, dir)
	}
	return c, nil
}

// NewCatalog builds a catalog from in-memory bundles keyed by locale
// identifier ("en", "de_DE", ...).
func NewCatalog(bundles map[string]map[string]string) (*Catalog, error) {
	c := newCatalog()
	for key, messages := range bundles {
		if err := c.add(key, messages); err != nil {
			return nil, err
		}
	}
	if !c.Available(DefaultLocale) {
		return nil, fmt.Errorf("no message bundle for default locale %s", DefaultLocale)
	}
	return c, nil
}

func newCatalog() *Catalog {
	fallback := en.New()
	return &Catalog{
		uni:       ut.New(fallback, fallback),
		templates: make(map[string]map[string]template),
	}
}

func (c *Catalog) add(key string, messages map[string]string) error {
	factory, ok := knownLocales[key]
	if !ok {
		return fmt.Errorf("unsupported locale %q", key)
	}
	if key != "en" {
		if err := c.uni.AddTranslator(factory(), true); err != nil {
			return fmt.Errorf("register locale %q: %w", key, err)
		}
	}
	if _, found := c.uni.GetTranslator(key); !found {
		return fmt.Errorf("locale %q not registered", key)
	}

	bundle := make(map[string]template, len(messages))
	for k, v := range messages {
		tmpl, err := parseTemplate(v)
		if err != nil {
			return fmt.Errorf("message %q: %w", k, err)
		}
		bundle[k] = tmpl
	}
	c.templates[key] = bundle
	return nil
}

// Available reports whether a bundle exists for exactly tag.
func (c *Catalog) Available(tag language.Tag) bool {
	_, ok := c.templates[localeKey(tag)]
	return ok
}

// Locales returns the identifiers of all loaded bundles.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k)
	}
	return out
}

// service builds the message service of tag. Keys missing from the bundle
// of tag are looked up in the DefaultLocale bundle.
func (c *Catalog) service(tag language.Tag) *MessageService {
	s := &MessageService{locale: tag, bundle: c.bundle(tag)}
	if localeKey(tag) != localeKey(DefaultLocale) {
		s.parent = c.bundle(DefaultLocale)
	}
	return s
}

func (c *Catalog) bundle(tag language.Tag) *bundle {
	return &bundle{templates: c.templates[localeKey(tag)]}
}
