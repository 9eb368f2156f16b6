package i18n

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/theoremus-urban-solutions/odata-core/metrics"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(map[string]map[string]string{
		"en": {
			"greeting":     "Hello {0}!",
			"pair":         "{0} and {1}",
			"plain":        "No placeholders",
			"english.only": "Only in English",
			odataerr.KeyInternal: "An internal error occurred in '{0}': {1}",
		},
		"de": {
			"greeting": "Hallo {0}!",
			"pair":     "{0} und {1}",
			"plain":    "Keine Platzhalter",
		},
	})
	require.NoError(t, err)
	return c
}

func TestSelectLocale(t *testing.T) {
	available := func(tag language.Tag) bool {
		return tag == language.German || tag == language.French
	}

	tests := []struct {
		name       string
		acceptable []language.Tag
		want       language.Tag
	}{
		{name: "first available wins", acceptable: []language.Tag{language.French, language.German}, want: language.French},
		{name: "skips unavailable", acceptable: []language.Tag{language.Japanese, language.German}, want: language.German},
		{name: "no partial fallback", acceptable: []language.Tag{language.MustParse("de-CH")}, want: DefaultLocale},
		{name: "empty list", acceptable: nil, want: DefaultLocale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectLocale(tt.acceptable, available))
		})
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tags, err := ParseAcceptLanguage("en;q=0.5, de-DE, de;q=0.9")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "de-DE", tags[0].String())
	assert.Equal(t, "de", tags[1].String())
	assert.Equal(t, "en", tags[2].String())

	tags, err = ParseAcceptLanguage("  ")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestParseAcceptLanguage_Malformed(t *testing.T) {
	_, err := ParseAcceptLanguage("en;q=abc")
	var perr *odataerr.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.True(t, c.Available(language.English))
	assert.True(t, c.Available(language.German))
	assert.False(t, c.Available(language.MustParse("de-DE")))
	assert.ElementsMatch(t, []string{"en", "de"}, c.Locales())

	msg := NewRegistry(c).For([]language.Tag{language.German}).
		Localize(odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound).AddContent("Employees"), nil)
	assert.Equal(t, "Die Entitätsmenge 'Employees' existiert nicht.", msg)
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{
			name: "missing default bundle",
			fs:   fstest.MapFS{"b/messages_de.yaml": {Data: []byte("a: b")}},
		},
		{
			name: "unsupported locale",
			fs: fstest.MapFS{
				"b/messages_en.yaml": {Data: []byte("a: b")},
				"b/messages_xx.yaml": {Data: []byte("a: b")},
			},
		},
		{
			name: "invalid yaml",
			fs:   fstest.MapFS{"b/messages_en.yaml": {Data: []byte("a: [")}},
		},
		{
			name: "unbalanced placeholder",
			fs:   fstest.MapFS{"b/messages_en.yaml": {Data: []byte("a: 'value {0'")}},
		},
		{
			name: "non numeric placeholder",
			fs:   fstest.MapFS{"b/messages_en.yaml": {Data: []byte("a: 'value {name}'")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(tt.fs, "b")
			assert.Error(t, err)
		})
	}
}

func TestMessageService_Localize(t *testing.T) {
	r := NewRegistry(testCatalog(t))
	en := r.For(nil)
	de := r.For([]language.Tag{language.German})

	tests := []struct {
		name string
		svc  *MessageService
		ref  odataerr.MessageReference
		want string
	}{
		{
			name: "single argument",
			svc:  en,
			ref:  odataerr.NewMessageReference("greeting").AddContent("World"),
			want: "Hello World!",
		},
		{
			name: "localized",
			svc:  de,
			ref:  odataerr.NewMessageReference("pair").AddContent("A", "B"),
			want: "A und B",
		},
		{
			name: "extra arguments are ignored",
			svc:  en,
			ref:  odataerr.NewMessageReference("plain").AddContent("unused"),
			want: "No placeholders",
		},
		{
			name: "missing key",
			svc:  en,
			ref:  odataerr.NewMessageReference("does.not.exist"),
			want: "Missing message for key 'does.not.exist'!",
		},
		{
			name: "missing placeholder argument",
			svc:  en,
			ref:  odataerr.NewMessageReference("pair").AddContent("A"),
			want: "Missing replacement for place holder in value '{0} and {1}' for following arguments '[A]'!",
		},
		{
			name: "key missing in locale falls back to default bundle",
			svc:  de,
			ref:  odataerr.NewMessageReference("english.only"),
			want: "Only in English",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.svc.Localize(tt.ref, nil))
		})
	}
}

func failingOperation() error {
	return innerFailure()
}

func innerFailure() error {
	return odataerr.Wrap(http.StatusInternalServerError,
		odataerr.NewMessageReference(odataerr.KeyBadRequest), errors.New("disk on fire"))
}

func TestMessageService_CauseFallback(t *testing.T) {
	svc := NewRegistry(testCatalog(t)).For(nil)
	ref := odataerr.NewMessageReference(odataerr.KeyInternal)

	cause := failingOperation()
	msg := svc.Localize(ref, cause)
	assert.Contains(t, msg, "i18n.failingOperation")
	assert.Contains(t, msg, "disk on fire")

	msg = svc.Localize(ref, errors.New("plain failure"))
	assert.Equal(t, "An internal error occurred in '*errors.errorString': plain failure", msg)

	// explicit arguments take precedence over the cause
	msg = svc.Localize(ref.AddContent("handler", "boom"), cause)
	assert.Equal(t, "An internal error occurred in 'handler': boom", msg)
}

func raiseInternal() error {
	return odataerr.New(http.StatusInternalServerError, odataerr.NewMessageReference(odataerr.KeyInternal))
}

func TestMessageService_LocalizeError(t *testing.T) {
	svc := NewRegistry(testCatalog(t)).For(nil)

	err := odataerr.New(http.StatusBadRequest, odataerr.NewMessageReference("greeting").AddContent("Bob"))
	assert.Equal(t, "Hello Bob!", svc.LocalizeError(err))
	assert.Contains(t, svc.LocalizeError(errors.New("raw")), "raw")

	// the frames of the error itself name the caller of raiseInternal
	msg := svc.LocalizeError(raiseInternal())
	assert.Contains(t, msg, "i18n.TestMessageService_LocalizeError")
}

func TestMessageService_ReorderedPlaceholders(t *testing.T) {
	c, err := NewCatalog(map[string]map[string]string{
		"en": {"where": "{0} in {1}", "twice": "{0}, {0}!"},
		"de": {"where": "In {1} steht {0}", "twice": "{0}! {0}!"},
	})
	require.NoError(t, err)
	r := NewRegistry(c)
	de := r.For([]language.Tag{language.German})
	en := r.For(nil)

	ref := odataerr.NewMessageReference("where").AddContent("A", "B")
	assert.NotPanics(t, func() {
		assert.Equal(t, "In B steht A", de.Localize(ref, nil))
	})
	assert.Equal(t, "A in B", en.Localize(ref, nil))
	assert.Equal(t, "Hey! Hey!", de.Localize(odataerr.NewMessageReference("twice").AddContent("Hey"), nil))

	short := odataerr.NewMessageReference("where").AddContent("A")
	assert.Equal(t, "Missing replacement for place holder in value 'In {1} steht {0}' for following arguments '[A]'!",
		de.Localize(short, nil))
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := parseTemplate("{2}-{0}-{1}")
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.highest)
	assert.Equal(t, "c-a-b", tmpl.render([]string{"a", "b", "c"}))

	tmpl, err = parseTemplate("plain")
	require.NoError(t, err)
	assert.Equal(t, -1, tmpl.highest)
	assert.Equal(t, "plain", tmpl.render(nil))

	for _, bad := range []string{"{x}", "a}b", "{0", "{-1}", "{0{1}}", "{}"} {
		_, err := parseTemplate(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegistry_CachesPerLocale(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	r := NewRegistry(testCatalog(t), WithRegistryMetrics(m))

	first := r.For([]language.Tag{language.German})
	second := r.For([]language.Tag{language.Japanese, language.German})
	assert.Same(t, first, second)
	assert.Equal(t, language.German, first.Locale())

	fallback := r.For([]language.Tag{language.Japanese})
	assert.Equal(t, language.English, fallback.Locale())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessageBundlesCached))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LanguagesTotal.WithLabelValues("en", metrics.ResultDefault)))
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	r := NewRegistry(testCatalog(t))

	const workers = 32
	results := make([]*MessageService, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.For([]language.Tag{language.German})
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, 1, r.Len())
}
