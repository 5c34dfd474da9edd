package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/rowstore/memstore"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
)

var testNow = time.Date(2026, 10, 17, 9, 30, 0, 123000000, time.UTC)

func testConfig() config.Config {
	return config.Config{HTTP: config.HTTPConfig{Addr: ":0", BodyLimit: "1K"}}
}

func newTestServer(t *testing.T, p *rowstore.Provider, history *fakeHistory) *Server {
	t.Helper()
	svc := suppliers.New(p, "", suppliers.WithClock(func() time.Time { return testNow }))
	if history == nil {
		return NewServer(testConfig(), svc, nil, nil)
	}
	return NewServer(testConfig(), svc, history, nil)
}

func seededProvider() *rowstore.Provider {
	store := memstore.New()
	store.Seed("suppliers", model.Record{
		"id":        model.String("sup-42"),
		"riskScore": model.Int(3),
		"name":      model.String("Acme"),
	})
	return rowstore.Static(store)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestUpdateSupplier(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers/update", `{"id":"sup-42","updates":{"riskScore":7}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"id":"sup-42","riskScore":7,"name":"Acme","updated_at":"2026-10-17T09:30:00.123Z"}}`, rec.Body.String())
}

func TestUpdateSupplierEmptyAndNullUpdates(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	for _, body := range []string{`{"id":"sup-42","updates":{}}`, `{"id":"sup-42","updates":null}`, `{"id":"sup-42"}`} {
		rec := do(s, http.MethodPost, "/api/suppliers/update", body)
		require.Equal(t, http.StatusOK, rec.Code, body)

		var out struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "2026-10-17T09:30:00.123Z", out.Data["updated_at"])
		assert.EqualValues(t, 3, out.Data["riskScore"])
	}
}

func TestUpdateSupplierNotFound(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers/update", `{"id":"sup-404","updates":{"riskScore":1}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Fornecedor com ID sup-404 não encontrado"}`, rec.Body.String())
}

func TestUpdateSupplierStoreRejection(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers/update", `{"id":"sup-42","updates":{"id":"other"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"column \"id\" cannot be updated"}`, rec.Body.String())
}

func TestUpdateSupplierEchoedIDIsAccepted(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers/update", `{"id":"sup-42","updates":{"id":"sup-42","riskScore":4}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"id":"sup-42","riskScore":4,"name":"Acme","updated_at":"2026-10-17T09:30:00.123Z"}}`, rec.Body.String())
}

func TestUpdateSupplierUnavailable(t *testing.T) {
	p := rowstore.NewProvider(func(context.Context) (rowstore.Client, error) {
		return nil, errors.New("missing service role key")
	})
	s := newTestServer(t, p, nil)

	for _, body := range []string{`{"id":"sup-42","updates":{"a":1}}`, `{"id":"","updates":{}}`} {
		rec := do(s, http.MethodPost, "/api/suppliers/update", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Cliente Supabase Admin não disponível"}`, rec.Body.String())
	}
}

func TestUpdateSupplierMalformedBody(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers/update", `{"id":`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["error"])
	assert.NotContains(t, out, "data")
}

func TestUpdateSupplierBodyTooLarge(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	body := `{"id":"sup-42","updates":{"notes":"` + strings.Repeat("x", 2048) + `"}}`
	rec := do(s, http.MethodPost, "/api/suppliers/update", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestCreateAndGetSupplier(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodPost, "/api/suppliers", `{"name":"Beta Ltda","category":"cloud"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	id, _ := out.Data["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "2026-10-17T09:30:00.123Z", out.Data["created_at"])

	rec = do(s, http.MethodGet, "/api/suppliers/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Beta Ltda"`)

	rec = do(s, http.MethodPost, "/api/suppliers", `{"category":"cloud"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"name is required"}`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/suppliers/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeHistory struct {
	entries []model.HistoryEntry
	err     error

	gotID            string
	gotLimit, gotOff int
}

func (f *fakeHistory) InsertBatch(context.Context, []model.ChangeEvent) error { return nil }

func (f *fakeHistory) ListBySupplier(_ context.Context, id string, limit, offset int) ([]model.HistoryEntry, error) {
	f.gotID, f.gotLimit, f.gotOff = id, limit, offset
	return f.entries, f.err
}

func TestSupplierHistory(t *testing.T) {
	h := &fakeHistory{entries: []model.HistoryEntry{{
		EventID:    "01JABC",
		SupplierID: "sup-42",
		Changes:    json.RawMessage(`{"riskScore":7}`),
		OccurredAt: testNow,
	}}}
	s := newTestServer(t, seededProvider(), h)

	rec := do(s, http.MethodGet, "/api/suppliers/sup-42/history?limit=10&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sup-42", h.gotID)
	assert.Equal(t, 10, h.gotLimit)
	assert.Equal(t, 5, h.gotOff)

	var out struct {
		Count   int                  `json:"count"`
		Results []model.HistoryEntry `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.JSONEq(t, `{"riskScore":7}`, string(out.Results[0].Changes))

	h.err = errors.New("clickhouse down")
	rec = do(s, http.MethodGet, "/api/suppliers/sup-42/history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 50, h.gotLimit)
}

func TestHistoryNotConfigured(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodGet, "/api/suppliers/sup-42/history", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterErrorsKeepErrorShape(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	rec := do(s, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUpdateSupplierTrailingDataIsRejected(t *testing.T) {
	s := newTestServer(t, seededProvider(), nil)

	for _, body := range []string{
		`{"id":"sup-42","updates":{"riskScore":9}} garbage`,
		`{"id":"sup-42","updates":{"riskScore":9}}{"id":"sup-42"}`,
	} {
		rec := do(s, http.MethodPost, "/api/suppliers/update", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.NotContains(t, rec.Body.String(), `"data"`)
	}

	rec := do(s, http.MethodPost, "/api/suppliers/update", "{\"id\":\"sup-42\",\"updates\":{}}\n  \n")
	assert.Equal(t, http.StatusOK, rec.Code, "trailing whitespace is fine")

	rec = do(s, http.MethodGet, "/api/suppliers/sup-42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"riskScore":3`)
}
