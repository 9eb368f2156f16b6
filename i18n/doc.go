// Package i18n negotiates the response language and renders localized
// messages.
//
// Bundles are YAML files named messages_<locale>.yaml that map message keys to
// templates with positional placeholders:
//
//	odata.EntitySetNotFound: "The entity set '{0}' does not exist."
//
// Placeholders may appear in any order and repeat, so a translation can
// rearrange its arguments ("In {1} steht {0}").
//
// A Registry caches one MessageService per locale. The acceptable locales of a
// request are passed explicitly:
//
//	tags, _ := i18n.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
//	msg := registry.For(tags).Localize(ref, err)
//
// Rendering never fails; missing keys and missing arguments produce a
// diagnostic text so error reporting itself cannot break a response.
package i18n
