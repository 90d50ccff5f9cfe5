package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/store"
)

type stubAggregator struct {
	result search.Result
	err    error

	mu      sync.Mutex
	lastReq search.Request
	lastID  string
}

func (a *stubAggregator) Search(_ context.Context, requestID string, req search.Request) (search.Result, error) {
	a.mu.Lock()
	a.lastReq = req
	a.lastID = requestID
	a.mu.Unlock()
	return a.result, a.err
}

type stubBrowser struct{ status string }

func (b stubBrowser) Status() string { return b.status }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestServer(agg Aggregator) *Server {
	catalog := store.NewCatalog(fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)})
	return NewServer(agg, catalog, stubBrowser{status: "idle"}, &seqIDGen{}, Config{}, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReportsBrowserState(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})
	rec := doRequest(t, s, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ready", body["status"])
	require.Equal(t, "idle", body["browser"])
}

func TestSearchReturnsAggregatedResult(t *testing.T) {
	t.Parallel()

	agg := &stubAggregator{
		result: search.Result{
			Products: []search.Product{
				{Title: "Wireless Mouse", Price: 1299, Source: search.SourceAmazon},
			},
			Total:          1,
			Sources:        map[search.Source]bool{search.SourceAmazon: true, search.SourceMyntra: false},
			ResponseTimeMs: 1234,
		},
	}
	s := newTestServer(agg)

	rec := doRequest(t, s, http.MethodGet, "/v1/search?term=wireless+mouse&max_price=2000&category=electronics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Total)
	require.Equal(t, "Wireless Mouse", result.Products[0].Title)

	require.Equal(t, "wireless mouse", agg.lastReq.Term)
	require.True(t, agg.lastReq.HasCeiling)
	require.Equal(t, 2000.0, agg.lastReq.PriceCeiling)
	require.Equal(t, "electronics", agg.lastReq.Category)
	require.NotEmpty(t, agg.lastID)
}

func TestSearchRejectsMissingTerm(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})
	rec := doRequest(t, s, http.MethodGet, "/v1/search", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestSearchRejectsBadPrice(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})
	rec := doRequest(t, s, http.MethodGet, "/v1/search?term=mouse&max_price=cheap", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAggregateTimeout(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{err: search.ErrAggregateTimeout})
	rec := doRequest(t, s, http.MethodGet, "/v1/search?term=mouse", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Empty(t, result.Products)
	require.False(t, result.Sources[search.SourceAmazon])
	require.False(t, result.Sources[search.SourceMyntra])
}

func TestCatalogLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})

	rec := doRequest(t, s, http.MethodPost, "/v1/catalog/", map[string]any{
		"title": "Wireless Mouse", "price": 1299.0, "category": "electronics",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Wireless Mouse", created.Title)

	rec = doRequest(t, s, http.MethodGet, "/v1/catalog/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPut, "/v1/catalog/"+created.ID, map[string]any{
		"title": "Wireless Mouse Pro", "price": 1499.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Wireless Mouse Pro", updated.Title)

	rec = doRequest(t, s, http.MethodGet, "/v1/catalog/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Entries []store.Entry `json:"entries"`
		Total   int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Total)

	rec = doRequest(t, s, http.MethodDelete, "/v1/catalog/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/catalog/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogCreateRequiresTitle(t *testing.T) {
	t.Parallel()

	s := newTestServer(&stubAggregator{})
	rec := doRequest(t, s, http.MethodPost, "/v1/catalog/", map[string]any{"price": 100.0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
