package i18n

import (
	"sync"
	"sync/atomic"

	"golang.org/x/text/language"

	"github.com/theoremus-urban-solutions/odata-core/metrics"
)

// Registry caches one MessageService per resolved locale for the lifetime of
// the process. Entries are created lazily on first use and never evicted;
// concurrent first lookups may build the same service twice but all callers
// observe the single stored value.
type Registry struct {
	catalog  *Catalog
	services sync.Map // locale key -> *MessageService
	size     atomic.Int64
	metrics  *metrics.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics reports the cache size to m.
func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry over catalog.
func NewRegistry(catalog *Catalog, opts ...RegistryOption) *Registry {
	r := &Registry{catalog: catalog}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// For negotiates the locale for the acceptable tags and returns its message
// service.
func (r *Registry) For(acceptable []language.Tag) *MessageService {
	tag := SelectLocale(acceptable, r.catalog.Available)
	result := metrics.ResultDefault
	for _, a := range acceptable {
		if r.catalog.Available(a) {
			result = metrics.ResultMatched
			break
		}
	}
	if r.metrics != nil {
		r.metrics.RecordLanguage(localeKey(tag), result)
	}
	return r.Service(tag)
}

// Service returns the cached service of tag, building it on a miss. tag must
// be available in the catalog; use For to negotiate.
func (r *Registry) Service(tag language.Tag) *MessageService {
	key := localeKey(tag)
	if v, ok := r.services.Load(key); ok {
		return v.(*MessageService)
	}
	actual, loaded := r.services.LoadOrStore(key, r.catalog.service(tag))
	if !loaded {
		n := r.size.Add(1)
		if r.metrics != nil {
			r.metrics.SetCachedBundles(int(n))
		}
	}
	return actual.(*MessageService)
}

// Len returns the number of cached services.
func (r *Registry) Len() int {
	return int(r.size.Load())
}
