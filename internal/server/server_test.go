package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

type stubScraper struct {
	series    domain.Series
	results   []domain.SearchResult
	err       error
	gotID     string
	gotName   string
	gotQuery  string
	gotLimit  int
	requestID string
	panicOn   bool
}

func (s *stubScraper) SeriesByID(ctx context.Context, id string) (domain.Series, error) {
	if s.panicOn {
		panic("boom")
	}
	s.gotID = id
	s.requestID, _ = logging.RequestIDFromContext(ctx)
	return s.series, s.err
}

func (s *stubScraper) SeriesByName(ctx context.Context, name string) (domain.Series, error) {
	s.gotName = name
	return s.series, s.err
}

func (s *stubScraper) Search(ctx context.Context, q string, limit int) ([]domain.SearchResult, error) {
	s.gotQuery = q
	s.gotLimit = limit
	return s.results, s.err
}

func newTestServer(t *testing.T, s Scraper) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(s, 10, logging.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeDetails(t *testing.T, w *httptest.ResponseRecorder) ErrorDetails {
	t.Helper()
	var d ErrorDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d), "body=%s", w.Body.String())
	return d
}

func TestSeriesByID_OK(t *testing.T) {
	st := &stubScraper{series: domain.Series{ID: "tt7654321", Name: "The Lighthouse Keepers", StartYear: 2015, NumberSeasons: 0, Seasons: []domain.Season{}}}
	h := newTestServer(t, st)

	w := do(t, h, "/scrap/id/tt7654321", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "tt7654321", st.gotID)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "tt7654321", got["id"])
	assert.Equal(t, "The Lighthouse Keepers", got["name"])

	rid := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, rid)
	assert.Equal(t, rid, st.requestID, "请求 ID 应透传到抓取上下文")
}

func TestRequestID_ClientValueIsKept(t *testing.T) {
	st := &stubScraper{}
	h := newTestServer(t, st)
	w := do(t, h, "/scrap/id/tt7654321", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", st.requestID)
}

func TestSeriesByName_PassesName(t *testing.T) {
	st := &stubScraper{series: domain.Series{ID: "tt7654321"}}
	h := newTestServer(t, st)
	w := do(t, h, "/scrap/name/lighthouse%20keepers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lighthouse keepers", st.gotName)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"mismatch", &provider.Error{Kind: provider.KindTitleTypeMismatch, Observed: "Movie"}, http.StatusBadRequest, CodeNotATVSeries},
		{"connection", &provider.Error{Kind: provider.KindConnection}, http.StatusBadGateway, CodeConnection},
		{"extraction", &provider.Error{Kind: provider.KindExtraction, Field: "name", Missing: true}, http.StatusServiceUnavailable, CodeBuilding},
		{"integrity", &provider.Error{Kind: provider.KindDataIntegrity}, http.StatusServiceUnavailable, CodeBuilding},
		{"invalid id", &provider.Error{Kind: provider.KindInvalidInput, Field: "id"}, http.StatusBadRequest, CodeInvalidIMDbID},
		{"not found", &provider.Error{Kind: provider.KindNotFound}, http.StatusNotFound, CodeTVSeriesNotFound},
		{"no results", &provider.Error{Kind: provider.KindNoResults}, http.StatusNotFound, CodeNoResults},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, CodeUnexpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &stubScraper{err: tc.err})
			w := do(t, h, "/scrap/id/tt7654321", nil)
			assert.Equal(t, tc.status, w.Code)
			d := decodeDetails(t, w)
			assert.Equal(t, tc.code, d.ErrorCode)
			assert.NotEmpty(t, d.ErrorType)
			assert.Equal(t, tc.err.Error(), d.ErrorMessage)
		})
	}
}

func TestSearch_LimitIsCapped(t *testing.T) {
	st := &stubScraper{results: []domain.SearchResult{{ID: "tt7654321", Name: "The Lighthouse Keepers"}}}
	h := newTestServer(t, st)

	w := do(t, h, "/search/name?q=keepers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "keepers", st.gotQuery)
	assert.Equal(t, 10, st.gotLimit, "未指定 limit 时使用配置上限")

	w = do(t, h, "/search/name?q=keepers&limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, st.gotLimit)

	w = do(t, h, "/search/name?q=keepers&limit=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, st.gotLimit)

	var got []domain.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, st.results, got)
}

func TestSearch_BadParameters(t *testing.T) {
	st := &stubScraper{}
	h := newTestServer(t, st)

	for _, target := range []string{"/search/name", "/search/name?q=%20", "/search/name?q=x&limit=abc"} {
		w := do(t, h, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, CodeMissingParameters, decodeDetails(t, w).ErrorCode, target)
	}
	assert.Empty(t, st.gotQuery, "参数错误时不应调用抓取")
}

func TestPanicIsUnexpected(t *testing.T) {
	h := newTestServer(t, &stubScraper{panicOn: true})
	w := do(t, h, "/scrap/id/tt7654321", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeUnexpected, decodeDetails(t, w).ErrorCode)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubScraper{})
	w := do(t, h, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
