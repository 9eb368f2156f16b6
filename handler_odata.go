package odatacore

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/theoremus-urban-solutions/odata-core/contenttype"
	"github.com/theoremus-urban-solutions/odata-core/ep"
	"github.com/theoremus-urban-solutions/odata-core/i18n"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
	"github.com/theoremus-urban-solutions/odata-core/uriinfo"
)

// Payload labels used in metrics.
const (
	payloadServiceDocument = "service_document"
	payloadLink            = "link"
	payloadLinks           = "links"
	payloadError           = "error"
)

// request carries the per-request decisions down the handler chain.
type request struct {
	w    http.ResponseWriter
	r    *http.Request
	msgs *i18n.MessageService
	ct   contenttype.ContentType
	snap *snapshot
}

func (s *Service) serveOData(w http.ResponseWriter, r *http.Request) {
	tags, err := i18n.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil {
		s.logger.Debug().Err(err).Msg("ignoring malformed Accept-Language")
	}
	req := &request{
		w:    w,
		r:    r,
		msgs: s.registry.For(tags),
		ct:   s.negotiator.Supported()[0],
		snap: s.current(),
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.fail(req, odataerr.New(http.StatusMethodNotAllowed,
			odataerr.NewMessageReference(odataerr.KeyNotImplemented).AddContent(r.Method+" "+r.URL.Path)))
		return
	}

	info, err := uriinfo.Parse(req.snap.model, r.URL.EscapedPath(), r.URL.Query())
	if err != nil {
		// the error document still honours the requested format
		if ct, nerr := s.negotiate(r.URL.Query().Get("$format"), r.Header.Get("Accept")); nerr == nil {
			req.ct = ct
		}
		s.fail(req, err)
		return
	}

	ct, err := s.negotiate(info.Format, r.Header.Get("Accept"))
	if err != nil {
		s.fail(req, err)
		return
	}
	req.ct = ct

	switch {
	case info.IsServiceDocument():
		s.serveServiceDocument(req)
	case info.IsLinks:
		s.serveLinks(req, info)
	default:
		s.fail(req, odataerr.New(http.StatusNotImplemented,
			odataerr.NewMessageReference(odataerr.KeyNotImplemented).AddContent(r.URL.Path)))
	}
}

// negotiate picks the response type. $format overrides Accept; an Accept
// header without a single parseable range is ignored.
func (s *Service) negotiate(format, accept string) (contenttype.ContentType, error) {
	if format != "" {
		return s.negotiator.NegotiateFormat(format)
	}
	ct, err := s.negotiator.Negotiate(accept)
	var perr *odataerr.ParseError
	if errors.As(err, &perr) {
		s.logger.Debug().Err(err).Msg("ignoring malformed Accept")
		return s.negotiator.Negotiate("")
	}
	return ct, err
}

func isJSON(ct contenttype.ContentType) bool {
	return ct.Subtype() == "json" || strings.HasSuffix(ct.Subtype(), "+json")
}

func (s *Service) serveServiceDocument(req *request) {
	doc := s.docs.Load()
	s.respond(req, payloadServiceDocument, http.StatusOK, func(w io.Writer) error {
		if isJSON(req.ct) {
			return ep.WriteJSONServiceDocument(w, doc)
		}
		return ep.WriteServiceDocument(w, doc, req.snap.props)
	})
}

func (s *Service) serveLinks(req *request, info *uriinfo.UriInfo) {
	data := req.snap.store
	source, err := data.Find(info.StartEntitySet, info.KeyPredicates)
	if err != nil {
		s.fail(req, err)
		return
	}
	seg := info.NavigationSegments[0]
	rows, err := data.Navigate(info.StartEntitySet, source, seg.Name)
	if err != nil {
		s.fail(req, err)
		return
	}
	entity, err := ep.NewEntityInfo(seg.TargetEntitySet)
	if err != nil {
		s.fail(req, odataerr.Internal(err))
		return
	}
	props := req.snap.props

	nav, _ := info.StartEntitySet.EntityType.NavigationProperty(seg.Name)
	if info.IsEntity() || !nav.Many {
		row, err := s.singleLink(req, info, entity, rows)
		if err != nil {
			s.fail(req, err)
			return
		}
		if row == nil {
			req.w.WriteHeader(http.StatusNoContent)
			return
		}
		s.respond(req, payloadLink, http.StatusOK, func(w io.Writer) error {
			if isJSON(req.ct) {
				return ep.WriteJSONLink(w, entity, row, props)
			}
			return ep.WriteLink(w, entity, row, props)
		})
		return
	}

	if info.WantsInlineCount() {
		props = props.WithInlineCount(len(rows))
	}
	rows = page(rows, info.Skip, info.Top)
	s.respond(req, payloadLinks, http.StatusOK, func(w io.Writer) error {
		if isJSON(req.ct) {
			return ep.WriteJSONLinks(w, entity, rows, props)
		}
		return ep.WriteLinks(w, entity, rows, props)
	})
}

// singleLink returns the row a single link points at: the addressed member
// of a collection, or the target of a to-one navigation (nil when unset).
func (s *Service) singleLink(req *request, info *uriinfo.UriInfo, entity *ep.EntityInfo, rows []map[string]any) (map[string]any, error) {
	seg := info.NavigationSegments[0]
	if len(seg.KeyPredicates) == 0 {
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}

	member, err := req.snap.store.Find(seg.TargetEntitySet, seg.KeyPredicates)
	if err != nil {
		return nil, err
	}
	want, err := entity.View(member)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if v, err := entity.View(row); err == nil && v.URI() == want.URI() {
			return row, nil
		}
	}
	return nil, odataerr.New(http.StatusNotFound,
		odataerr.NewMessageReference(odataerr.KeyEntityNotFound).AddContent(seg.Name, want.KeyPredicate()))
}

func page(rows []map[string]any, skip, top *int) []map[string]any {
	if skip != nil {
		if *skip >= len(rows) {
			return nil
		}
		rows = rows[*skip:]
	}
	if top != nil && *top < len(rows) {
		rows = rows[:*top]
	}
	return rows
}

// respond renders the body into a buffer first. A serialization failure
// discards the partial body and answers with an error document instead.
func (s *Service) respond(req *request, payload string, status int, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		kind := string(odataerr.KindCommon)
		var serr *odataerr.SerializationError
		if errors.As(err, &serr) {
			kind = string(serr.Kind)
		}
		s.metrics.RecordSerializationError(payload, kind)
		s.logger.Error().Err(err).Str("payload", payload).Msg("serialization failed")
		s.fail(req, err)
		return
	}
	s.metrics.RecordSerialization(payload, req.ct.String())

	h := req.w.Header()
	h.Set("Content-Type", req.ct.String())
	h.Set("DataServiceVersion", "1.0")
	req.w.WriteHeader(status)
	if req.r.Method != http.MethodHead {
		_, _ = req.w.Write(buf.Bytes())
	}
}

// fail answers with a localized error document in the negotiated format.
func (s *Service) fail(req *request, err error) {
	status, cause := classify(err)
	code := odataerr.KeyInternal
	var oerr *odataerr.Error
	if errors.As(cause, &oerr) {
		code = oerr.Ref.Key
	}
	info := ep.ErrorInfo{
		Code:    code,
		Message: req.msgs.LocalizeError(cause),
		Lang:    req.msgs.Locale().String(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}

	ct := contenttype.ApplicationXML
	write := ep.WriteError
	if isJSON(req.ct) {
		ct = contenttype.ApplicationJSON
		write = ep.WriteJSONError
	}
	var buf bytes.Buffer
	if werr := write(&buf, info); werr != nil {
		s.metrics.RecordSerializationError(payloadError, string(odataerr.KindCommon))
		http.Error(req.w, info.Message, status)
		return
	}
	h := req.w.Header()
	h.Set("Content-Type", ct.String())
	h.Set("DataServiceVersion", "1.0")
	req.w.WriteHeader(status)
	_, _ = req.w.Write(buf.Bytes())
}

// classify maps an error to its HTTP status and the error to localize.
// Known failures become an *odataerr.Error with their message; anything else
// is returned as is and rendered as an internal error.
func classify(err error) (int, error) {
	var (
		oerr *odataerr.Error
		nerr *odataerr.NegotiationError
		serr *odataerr.SerializationError
		perr *odataerr.ParseError
	)
	switch {
	case errors.As(err, &oerr):
		return oerr.Status, oerr
	case errors.As(err, &nerr):
		return nerr.Status(), odataerr.Wrap(nerr.Status(), odataerr.NewMessageReference(odataerr.KeyNotAcceptable).
			AddContent(nerr.Requested, strings.Join(nerr.Supported, ", ")), nerr)
	case errors.As(err, &serr):
		return http.StatusInternalServerError, odataerr.Wrap(http.StatusInternalServerError,
			odataerr.NewMessageReference(odataerr.KeySerialization).AddContent(string(serr.Kind)), serr)
	case errors.As(err, &perr):
		return http.StatusBadRequest, odataerr.Wrap(http.StatusBadRequest,
			odataerr.NewMessageReference(odataerr.KeyBadRequest).AddContent(perr.Error()), perr)
	}
	return http.StatusInternalServerError, err
}
