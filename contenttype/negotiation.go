package contenttype

import (
	"sort"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/odata-core/internal/logging"
	"github.com/theoremus-urban-solutions/odata-core/metrics"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

// Negotiator selects a response content type from the configured supported
// list. It holds no mutable state and is safe for concurrent use.
type Negotiator struct {
	supported []ContentType
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NegotiatorOption is a functional option for configuring the negotiator.
type NegotiatorOption func(*Negotiator)

// WithLogger sets the logger for the negotiator.
func WithLogger(l *logging.Logger) NegotiatorOption {
	return func(n *Negotiator) {
		n.logger = l
	}
}

// WithMetrics sets the metrics sink for the negotiator.
func WithMetrics(m *metrics.Metrics) NegotiatorOption {
	return func(n *Negotiator) {
		n.metrics = m
	}
}

// NewNegotiator creates a negotiator over supported, in preference order.
// An empty list falls back to application/xml.
func NewNegotiator(supported []ContentType, opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		supported: append([]ContentType(nil), supported...),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if len(n.supported) == 0 {
		n.supported = []ContentType{ApplicationXML}
	}
	return n
}

// Supported returns the configured types.
func (n *Negotiator) Supported() []ContentType {
	return append([]ContentType(nil), n.supported...)
}

// Negotiate returns the best supported type for an Accept header value.
//
// An empty header selects the first supported type. If no acceptable range
// matches any supported type the result is a *odataerr.NegotiationError;
// a header with no parseable range is a *odataerr.ParseError.
func (n *Negotiator) Negotiate(accept string) (ContentType, error) {
	if strings.TrimSpace(accept) == "" {
		n.record(n.supported[0].String(), metrics.ResultDefault)
		return n.supported[0], nil
	}

	ranges, err := ParseAccept(accept)
	if err != nil {
		n.record("", metrics.ResultInvalid)
		return ContentType{}, err
	}
	for _, r := range ranges {
		for _, s := range n.supported {
			if r.Match(s) {
				n.logger.Debug().
					Str("accept", accept).
					Str("selected", s.String()).
					Msg("content type negotiated")
				n.record(s.String(), metrics.ResultMatched)
				return s, nil
			}
		}
	}

	n.logger.Debug().Str("accept", accept).Msg("no acceptable content type")
	n.record("", metrics.ResultRejected)
	return ContentType{}, &odataerr.NegotiationError{Requested: accept, Supported: n.supportedStrings()}
}

// NegotiateFormat resolves a $format value, which overrides the Accept
// header, against the supported list.
func (n *Negotiator) NegotiateFormat(format string) (ContentType, error) {
	requested, err := ResolveFormat(format)
	if err != nil {
		n.record("", metrics.ResultInvalid)
		return ContentType{}, err
	}
	for _, s := range n.supported {
		if requested.Match(s) {
			n.record(s.String(), metrics.ResultMatched)
			return s, nil
		}
	}
	n.record("", metrics.ResultRejected)
	return ContentType{}, &odataerr.NegotiationError{Requested: format, Supported: n.supportedStrings()}
}

// ResolveFormat maps the $format short names to content types; any other
// value is parsed as a media type.
func ResolveFormat(format string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "xml":
		return ApplicationXML, nil
	case "atom":
		return ApplicationAtomXML, nil
	case "json":
		return ApplicationJSON, nil
	}
	return Parse(format)
}

type weighted struct {
	ct ContentType
	q  float64
}

// ParseAccept splits an Accept header into media ranges ordered by quality,
// highest first; ranges of equal quality keep header order. Commas inside
// quoted parameter values do not separate ranges. The q parameter
// is removed and ranges with q=0 are dropped. Malformed ranges are skipped
// unless nothing parseable remains.
func ParseAccept(header string) ([]ContentType, error) {
	parts, ok := splitUnquoted(header, ',')
	if !ok {
		parts = strings.Split(header, ",")
	}
	items := make([]weighted, 0, len(parts))
	var firstErr error
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ct, err := Parse(part)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		q := 1.0
		if v, ok := ct.Parameter("q"); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
			ct = ct.RemoveParameter("q")
		}
		if q <= 0 {
			continue
		}
		items = append(items, weighted{ct: ct, q: q})
	}
	if len(items) == 0 && firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].q > items[j].q
	})
	out := make([]ContentType, len(items))
	for i, it := range items {
		out[i] = it.ct
	}
	return out, nil
}

func (n *Negotiator) supportedStrings() []string {
	out := make([]string, len(n.supported))
	for i, s := range n.supported {
		out[i] = s.String()
	}
	return out
}

func (n *Negotiator) record(contentType, result string) {
	if n.metrics != nil {
		n.metrics.RecordNegotiation(contentType, result)
	}
}
