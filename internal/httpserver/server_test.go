package httpserver_test

import (
	"bytes"
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

	"github.com/MrSnakeDoc/shortlist/internal/auth"
	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
	"github.com/MrSnakeDoc/shortlist/internal/metrics"
	"github.com/MrSnakeDoc/shortlist/internal/store/memory"
)

const secret = "test-secret"

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Store
	token   string
}

func newTestServer(t *testing.T, mutate ...func(*deps.Deps)) *testServer {
	t.Helper()

	now := time.Now().UTC()
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.SaveCollection(ctx, &domain.Collection{ID: "col-1", OwnerID: "alice"}))
	require.NoError(t, s.SaveCollection(ctx, &domain.Collection{ID: "col-2", OwnerID: "bob"}))
	for _, it := range []domain.SavedItem{
		{ID: "X", CollectionID: "col-1", URL: "https://hotelsite.com/a", AddedAt: now.Add(-2 * time.Hour)},
		{ID: "Y", CollectionID: "col-1", URL: "https://www.hotelsite.com/b", AddedAt: now.Add(-time.Hour)},
		{ID: "B1", CollectionID: "col-2", URL: "https://example.org", AddedAt: now},
	} {
		it := it
		require.NoError(t, s.SaveItem(ctx, &it))
	}

	v, err := auth.NewVerifier(secret)
	require.NoError(t, err)
	token, err := v.Issue("alice", time.Hour)
	require.NoError(t, err)

	log := logger.NewNop()
	m := metrics.New()
	d := deps.Deps{
		Logger:     log,
		StartTime:  now,
		Engine:     decision.NewEngine(s, log, decision.Options{LockWait: 100 * time.Millisecond}, decision.WithMetrics(m)),
		Verifier:   v,
		Metrics:    m,
		Store:      s,
		StoreName:  "memory",
		RateBurst:  1000,
		RatePerMin: 1000,
	}
	for _, m := range mutate {
		m(&d)
	}

	return &testServer{t: t, handler: httpserver.NewRouter(d), store: s, token: token}
}

func (ts *testServer) post(path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	ts.t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out))
	return out
}

func TestRecomputeThenResolve(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["groupsCreated"])
	assert.EqualValues(t, 2, body["linksUpdated"])

	x, err := ts.store.GetItem(context.Background(), "X")
	require.NoError(t, err)
	require.NotEmpty(t, x.DecisionGroupID)

	rec = ts.post("/api/decisions/resolve", `{"collectionId":"col-1","decisionGroupId":"`+x.DecisionGroupID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "no_resolution", body["status"])
	assert.Nil(t, body["linkId"])

	rec = ts.post("/api/links/flags", `{"linkId":"X","shortlisted":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["shortlisted"])

	rec = ts.post("/api/decisions/resolve", `{"collectionId":"col-1","decisionGroupId":"`+x.DecisionGroupID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "candidate_chosen", body["status"])
	assert.Equal(t, "X", body["linkId"])
}

func TestArchiveOthersAndOpen(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`).Code)
	x, err := ts.store.GetItem(context.Background(), "X")
	require.NoError(t, err)

	rec := ts.post("/api/decisions/archive-others",
		`{"collectionId":"col-1","decisionGroupId":"`+x.DecisionGroupID+`","chosenLinkId":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["updated"])

	y, err := ts.store.GetItem(context.Background(), "Y")
	require.NoError(t, err)
	assert.True(t, y.Dismissed)
	assert.False(t, y.Shortlisted)

	rec = ts.post("/api/decisions/archive-others",
		`{"collectionId":"col-1","decisionGroupId":"unknown","chosenLinkId":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["updated"])

	rec = ts.post("/api/links/open", `{"linkId":"Y"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["openCount"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      string
		wantCode  int
		wantField string
	}{
		{"missing collection", "/api/decisions/recompute", `{}`, http.StatusBadRequest, "collectionId"},
		{"malformed body", "/api/decisions/recompute", `{"collectionId":`, http.StatusBadRequest, "body"},
		{"empty body", "/api/links/open", ``, http.StatusBadRequest, "body"},
		{"missing group", "/api/decisions/resolve", `{"collectionId":"col-1"}`, http.StatusBadRequest, "decisionGroupId"},
		{"missing chosen", "/api/decisions/archive-others", `{"collectionId":"col-1","decisionGroupId":"g"}`, http.StatusBadRequest, "chosenLinkId"},
		{"missing link", "/api/links/flags", `{"shortlisted":true}`, http.StatusBadRequest, "linkId"},
		{"unknown collection", "/api/decisions/recompute", `{"collectionId":"nope"}`, http.StatusNotFound, ""},
		{"foreign collection", "/api/decisions/recompute", `{"collectionId":"col-2"}`, http.StatusNotFound, ""},
		{"foreign link", "/api/links/open", `{"linkId":"B1"}`, http.StatusNotFound, ""},
	}

	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.post(tt.path, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	for _, token := range []string{"", "garbage"} {
		ts.token = token
		rec := ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decode(t, rec)["error"])
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	}

	other, err := auth.NewVerifier("other-secret")
	require.NoError(t, err)
	ts.token, err = other.Issue("alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, ts.post("/api/links/open", `{"linkId":"X"}`).Code)
}

func TestBusyCollection(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	unlock, ok, err := ts.store.TryLockCollection(ctx, "col-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = unlock(ctx) }()

	rec := ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

type failingStore struct{ *memory.Store }

func (failingStore) CollectionOwner(context.Context, string) (string, error) {
	return "", errors.New("connection reset")
}

func (failingStore) Ping(context.Context) error { return errors.New("connection reset") }

func TestStoreFailure(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) {
		fs := failingStore{memory.New()}
		d.Engine = decision.NewEngine(fs, d.Logger, decision.Options{})
		d.Store = fs
	})

	rec := ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])

	rec = ts.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ready"])
}

func TestProbesAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])

	rec = ts.get("/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ready"])

	require.Equal(t, http.StatusOK, ts.post("/api/decisions/recompute", `{"collectionId":"col-1"}`).Code)
	rec = ts.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shortlist_recomputes_total")
	assert.Contains(t, rec.Body.String(), `route="/api/decisions/recompute"`)
}

func TestProbesBehindAllowlist(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })

	// httptest requests come from 192.0.2.1.
	assert.Equal(t, http.StatusForbidden, ts.get("/readyz").Code)
	assert.Equal(t, http.StatusForbidden, ts.get("/metrics").Code)
	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)
}

func TestMetricsDisabled(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) { d.Metrics = nil })
	assert.Equal(t, http.StatusNotFound, ts.get("/metrics").Code)
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) {
		d.RateBurst = 2
		d.RatePerMin = 1
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.post("/api/links/open", `{"linkId":"X"}`).Code)
	}
	rec := ts.post("/api/links/open", `{"linkId":"X"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)
}
