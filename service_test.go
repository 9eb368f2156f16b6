package odatacore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/odata-core/config"
	"github.com/theoremus-urban-solutions/odata-core/contenttype"
	"github.com/theoremus-urban-solutions/odata-core/metrics"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

const (
	xmlHeader  = `<?xml version="1.0" encoding="utf-8"?>`
	serviceURI = "http://localhost:16181/odata.svc/"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load("testdata/config.yml")
	require.NoError(t, err)
	return cfg
}

func newTestService(t *testing.T) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc, err := NewService(context.Background(), testConfig(t), WithMetrics(m))
	require.NoError(t, err)
	return svc, m
}

func get(t *testing.T, h http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServiceDocument_Negotiation(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	tests := []struct {
		name        string
		target      string
		accept      string
		contentType string
		contains    string
	}{
		{name: "default", target: "/odata.svc/", contentType: "application/xml", contains: `<collection href="Employees">`},
		{name: "without trailing slash", target: "/odata.svc", contentType: "application/xml", contains: `<collection href="Rooms">`},
		{name: "atom", target: "/odata.svc/", accept: "application/atom+xml", contentType: "application/atom+xml", contains: `xml:base="` + serviceURI + `"`},
		{name: "json by accept", target: "/odata.svc/", accept: "application/json", contentType: "application/json", contains: `"EntitySets":["Employees","Managers","Teams","Rooms"]`},
		{name: "q values", target: "/odata.svc/", accept: "application/xml;q=0.5, application/json", contentType: "application/json", contains: `"EntitySets"`},
		{name: "wildcard", target: "/odata.svc/", accept: "*/*", contentType: "application/xml", contains: "<service"},
		{name: "format overrides accept", target: "/odata.svc/?$format=json", accept: "application/xml", contentType: "application/json", contains: `"d":`},
		{name: "malformed accept falls back", target: "/odata.svc/", accept: "/,;", contentType: "application/xml", contains: "<service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target, map[string]string{"Accept": tt.accept})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, "1.0", rec.Header().Get("DataServiceVersion"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestNotAcceptable(t *testing.T) {
	svc, m := newTestService(t)
	h := svc.Handler()

	rec := get(t, h, "/odata.svc/", map[string]string{"Accept": "text/plain"})
	require.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, xmlHeader+
		`<error xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">`+
		`<code>odata.NotAcceptable</code>`+
		`<message xml:lang="en">The requested content type &apos;text/plain&apos; is not supported. `+
		`Supported content types: application/xml, application/atom+xml, application/json.</message>`+
		`</error>`, rec.Body.String())

	rec = get(t, h, "/odata.svc/", map[string]string{"Accept": "text/plain", "Accept-Language": "fr;q=0.9, de"})
	require.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Contains(t, rec.Body.String(), `<message xml:lang="de">Der angeforderte Inhaltstyp &apos;text/plain&apos;`)

	rec = get(t, h, "/odata.svc/?$format=text/csv", nil)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.NegotiationsTotal.WithLabelValues("", metrics.ResultRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("odata", "4xx")))
}

func TestLinks(t *testing.T) {
	svc, m := newTestService(t)
	h := svc.Handler()

	rec := get(t, h, "/odata.svc/Managers('1')/$links/nm_Employees?$inlinecount=allpages", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xmlHeader+
		`<links xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices">`+
		`<m:count xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">3</m:count>`+
		`<uri>`+serviceURI+`Employees(&apos;1&apos;)</uri>`+
		`<uri>`+serviceURI+`Employees(&apos;2&apos;)</uri>`+
		`<uri>`+serviceURI+`Employees(&apos;3&apos;)</uri>`+
		`</links>`, rec.Body.String())

	rec = get(t, h, "/odata.svc/Managers('1')/$links/nm_Employees?$inlinecount=allpages&$skip=1&$top=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, ">3</m:count>", "count covers all rows, not the page")
	assert.Equal(t, 1, strings.Count(body, "<uri>"))
	assert.Contains(t, body, "Employees(&apos;2&apos;)")

	rec = get(t, h, "/odata.svc/Teams('2')/$links/nt_Employees?$format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"d":{"results":[{"uri":"`+serviceURI+`Employees('4')"},{"uri":"`+serviceURI+`Employees('5')"}]}}`,
		rec.Body.String())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SerializationsTotal.WithLabelValues(payloadLinks, "application/xml")))
}

func TestSingleLink(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	rec := get(t, h, "/odata.svc/Employees('4')/$links/ne_Manager", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xmlHeader+
		`<uri xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices">`+serviceURI+`Managers(&apos;3&apos;)</uri>`,
		rec.Body.String())

	rec = get(t, h, "/odata.svc/Rooms('2')/$links/nr_Employees('3')", map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"d":{"uri":"`+serviceURI+`Employees('3')"}}`, rec.Body.String())

	rec = get(t, h, "/odata.svc/Employees('6')/$links/ne_Room", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = get(t, h, "/odata.svc/Rooms('2')/$links/nr_Employees('5')", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<code>odata.EntityNotFound</code>")
}

func TestErrors(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	tests := []struct {
		name     string
		target   string
		headers  map[string]string
		status   int
		code     string
		contains string
	}{
		{
			name:     "unknown entity set",
			target:   "/odata.svc/Nope",
			status:   http.StatusNotFound,
			code:     "odata.EntitySetNotFound",
			contains: "The entity set &apos;Nope&apos; does not exist.",
		},
		{
			name:     "unknown entity set in german",
			target:   "/odata.svc/Nope",
			headers:  map[string]string{"Accept-Language": "de"},
			status:   http.StatusNotFound,
			code:     "odata.EntitySetNotFound",
			contains: `<message xml:lang="de">Die Entitätsmenge &apos;Nope&apos; existiert nicht.</message>`,
		},
		{
			name:     "unknown locale falls back to english",
			target:   "/odata.svc/Nope",
			headers:  map[string]string{"Accept-Language": "ja"},
			status:   http.StatusNotFound,
			code:     "odata.EntitySetNotFound",
			contains: `xml:lang="en"`,
		},
		{
			name:   "unknown entity",
			target: "/odata.svc/Employees('99')/$links/ne_Manager",
			status: http.StatusNotFound,
			code:   "odata.EntityNotFound",
		},
		{
			name:   "unknown navigation",
			target: "/odata.svc/Employees('1')/$links/ne_Boss",
			status: http.StatusNotFound,
			code:   "odata.NavigationNotFound",
		},
		{
			name:   "bad query option",
			target: "/odata.svc/Employees?$top=x",
			status: http.StatusBadRequest,
			code:   "odata.BadRequest",
		},
		{
			name:   "entity payloads are not served",
			target: "/odata.svc/Employees",
			status: http.StatusNotImplemented,
			code:   "odata.NotImplemented",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target, tt.headers)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "<code>"+tt.code+"</code>")
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestErrors_JSON(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc.Handler(), "/odata.svc/Nope?$format=json", map[string]string{"Accept-Language": "de"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"odata.EntitySetNotFound","message":{"lang":"de","value":"Die Entitätsmenge 'Nope' existiert nicht."}}}`,
		rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	req := httptest.NewRequest(http.MethodPost, "/odata.svc/Employees", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	svc, _ := newTestService(t)
	h := svc.Handler()

	rec := get(t, h, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 4, health.EntitySets)
	assert.NotZero(t, health.MetadataLoadedAt)

	rec = get(t, h, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReload(t *testing.T) {
	svc, m := newTestService(t)
	h := svc.Handler()

	broken := testConfig(t)
	broken.Metadata.Containers[0].EntitySets[0].EntityType = "Nobody"
	require.Error(t, svc.Reload(context.Background(), broken))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MetadataReloads.WithLabelValues("failure")))

	rec := get(t, h, "/odata.svc/?$format=json", nil)
	assert.Contains(t, rec.Body.String(), `"Employees"`, "previous model still served")

	smaller := testConfig(t)
	smaller.Metadata.Containers[0].EntitySets = smaller.Metadata.Containers[0].EntitySets[1:2]
	for i := range smaller.Metadata.EntityTypes {
		smaller.Metadata.EntityTypes[i].Navigation = nil
	}
	smaller.Data.Source = ""
	require.NoError(t, svc.Reload(context.Background(), smaller))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MetadataReloads.WithLabelValues("success")))

	rec = get(t, h, "/odata.svc/?$format=json", nil)
	assert.JSONEq(t, `{"d":{"EntitySets":["Managers"]}}`, rec.Body.String())
}

func TestNewService_BadContentType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Service.ContentTypes = []string{"application/"}
	_, err := NewService(context.Background(), cfg, WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	raw := errors.New("disk on fire")
	tests := []struct {
		name   string
		err    error
		status int
		key    string
	}{
		{name: "protocol error", err: odataerr.New(http.StatusNotFound, odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound)), status: http.StatusNotFound, key: odataerr.KeyEntitySetNotFound},
		{name: "negotiation", err: &odataerr.NegotiationError{Requested: "a/b"}, status: http.StatusNotAcceptable, key: odataerr.KeyNotAcceptable},
		{name: "serialization", err: odataerr.NewSerializationError(odataerr.KindMissingKey, nil), status: http.StatusInternalServerError, key: odataerr.KeySerialization},
		{name: "parse", err: odataerr.NewParseError("x", "bad"), status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, cause := classify(tt.err)
			assert.Equal(t, tt.status, status)
			var oerr *odataerr.Error
			require.True(t, errors.As(cause, &oerr))
			assert.Equal(t, tt.key, oerr.Ref.Key)
			assert.True(t, errors.Is(cause, tt.err))
		})
	}

	status, cause := classify(raw)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Same(t, raw, cause)
}

func TestFail_InternalError(t *testing.T) {
	svc, _ := newTestService(t)
	rec := httptest.NewRecorder()
	req := &request{
		w:    rec,
		r:    httptest.NewRequest(http.MethodGet, "/odata.svc/", nil),
		msgs: svc.registry.For(nil),
		ct:   contenttype.ApplicationJSON,
		snap: svc.current(),
	}

	svc.fail(req, errors.New("disk on fire"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"odata.InternalError","message":{"lang":"en","value":"An internal error occurred in '*errors.errorString': disk on fire"}}}`,
		rec.Body.String())
}
