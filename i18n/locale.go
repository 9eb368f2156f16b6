package i18n

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

// DefaultLocale is used when none of the acceptable locales has a bundle.
var DefaultLocale = language.English

// SelectLocale returns the first acceptable locale for which available
// reports a bundle of exactly that locale, or DefaultLocale. There is no
// language-only fallback beyond what available itself does.
func SelectLocale(acceptable []language.Tag, available func(language.Tag) bool) language.Tag {
	for _, tag := range acceptable {
		if available(tag) {
			return tag
		}
	}
	return DefaultLocale
}

// ParseAcceptLanguage parses an Accept-Language header into tags ordered by
// quality, most preferred first. An empty header yields no tags.
func ParseAcceptLanguage(header string) ([]language.Tag, error) {
	if strings.TrimSpace(header) == "" {
		return nil, nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil, odataerr.NewParseError(header, err.Error())
	}
	return tags, nil
}

// localeKey maps a BCP 47 tag to the locale identifier used by bundles
// ("en-US" becomes "en_US").
func localeKey(tag language.Tag) string {
	return strings.ReplaceAll(tag.String(), "-", "_")
}
