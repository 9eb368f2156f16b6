// Package odatacore serves an OData entity data model over HTTP: the
// service document and the $links of navigation properties, in XML, Atom
// and JSON, with content type and language negotiation.
package odatacore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/theoremus-urban-solutions/odata-core/config"
	"github.com/theoremus-urban-solutions/odata-core/contenttype"
	"github.com/theoremus-urban-solutions/odata-core/edm"
	"github.com/theoremus-urban-solutions/odata-core/ep"
	"github.com/theoremus-urban-solutions/odata-core/i18n"
	"github.com/theoremus-urban-solutions/odata-core/internal/logging"
	"github.com/theoremus-urban-solutions/odata-core/metrics"
	"github.com/theoremus-urban-solutions/odata-core/servicedocument"
	"github.com/theoremus-urban-solutions/odata-core/store"
)

// snapshot is everything a request reads that a reload replaces.
type snapshot struct {
	model    *edm.Edm
	store    *store.Store
	props    ep.Properties
	loadedAt time.Time
}

// Service answers OData requests for one entity data model.
type Service struct {
	path       string
	negotiator *contenttype.Negotiator
	registry   *i18n.Registry
	docs       *servicedocument.Holder
	snap       atomic.Pointer[snapshot]
	logger     *logging.Logger
	metrics    *metrics.Metrics
	catalog    *i18n.Catalog
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics sets the metrics the service reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCatalog replaces the message catalog configured by service.bundleDir.
func WithCatalog(c *i18n.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// NewService builds a service from cfg and loads its model and data.
func NewService(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*Service, error) {
	s := &Service{
		path:   strings.TrimSuffix(cfg.Service.Path, "/"),
		docs:   &servicedocument.Holder{},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Get()
	}

	supported := make([]contenttype.ContentType, 0, len(cfg.Service.ContentTypes))
	for _, text := range cfg.Service.ContentTypes {
		ct, err := contenttype.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("service.contentTypes: %w", err)
		}
		supported = append(supported, ct)
	}
	s.negotiator = contenttype.NewNegotiator(supported,
		contenttype.WithLogger(s.logger.Component("negotiation")),
		contenttype.WithMetrics(s.metrics))

	if s.catalog == nil {
		var err error
		if cfg.Service.BundleDir != "" {
			s.catalog, err = i18n.LoadCatalog(os.DirFS(cfg.Service.BundleDir), ".")
		} else {
			s.catalog, err = i18n.DefaultCatalog()
		}
		if err != nil {
			return nil, fmt.Errorf("message bundles: %w", err)
		}
	}
	s.registry = i18n.NewRegistry(s.catalog, i18n.WithRegistryMetrics(s.metrics))

	if err := s.Reload(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the model, service document and data from cfg and
// publishes them together. On failure the previous state stays in effect.
// Content types, message bundles and the mount path are fixed at start.
func (s *Service) Reload(ctx context.Context, cfg *config.AppConfig) error {
	snap, doc, err := build(ctx, cfg)
	if err != nil {
		s.metrics.RecordMetadataReload("failure")
		return err
	}
	s.snap.Store(snap)
	s.docs.Store(doc)
	s.metrics.RecordMetadataReload("success")
	s.logger.Info().
		Int("entity_sets", len(doc.EntitySetsInfo())).
		Msg("metadata loaded")
	return nil
}

func build(ctx context.Context, cfg *config.AppConfig) (*snapshot, *servicedocument.ServiceDocument, error) {
	model, err := edm.FromConfig(cfg.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata: %w", err)
	}
	doc, err := servicedocument.FromEdm(model, cfg.Service.Title)
	if err != nil {
		return nil, nil, fmt.Errorf("service document: %w", err)
	}
	timeout := time.Duration(cfg.Data.TimeoutMS) * time.Millisecond
	data, err := store.Load(ctx, model, cfg.Data.Source, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("data: %w", err)
	}
	return &snapshot{
		model:    model,
		store:    data,
		props:    ep.Properties{ServiceRoot: cfg.Service.Root},
		loadedAt: time.Now(),
	}, doc, nil
}

func (s *Service) current() *snapshot {
	return s.snap.Load()
}

// Handler returns the HTTP handler of the service: the OData endpoint on
// the configured path plus /api/health and /metrics.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", s.instrument("metrics", metricsHandler()))

	odata := s.instrument("odata", http.HandlerFunc(s.serveOData))
	if s.path == "" {
		mux.Handle("/", odata)
	} else {
		mux.Handle(s.path, http.StripPrefix(s.path, odata))
		mux.Handle(s.path+"/", http.StripPrefix(s.path, odata))
	}
	return mux
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	contentType string
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.contentType = r.Header().Get("Content-Type")
	r.ResponseWriter.WriteHeader(status)
}

func (s *Service) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.contentType == "" {
			rec.contentType = rec.Header().Get("Content-Type")
		}
		d := time.Since(start)
		s.metrics.RecordRequest(endpoint, rec.status, d)
		s.logger.LogRequest(r.Method, r.URL.Path, rec.status, rec.contentType, d, nil)
	})
}
