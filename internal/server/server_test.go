package server_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/auth"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/gateway"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/metrics"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/server"
)

// upstreamCall is one request seen by the fake gateway.
type upstreamCall struct {
	Method string
	Path   string
	Query  string
	Key    string
	Body   string
}

// fakeGateway records calls and answers with a fixed status and body.
type fakeGateway struct {
	mu     sync.Mutex
	calls  []upstreamCall
	status int
	body   string
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	g.mu.Lock()
	g.calls = append(g.calls, upstreamCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Key:    r.Header.Get(gateway.HeaderAPIKey),
		Body:   string(body),
	})
	status, respBody := g.status, g.body
	g.mu.Unlock()

	w.WriteHeader(status)
	_, _ = io.WriteString(w, respBody)
}

func (g *fakeGateway) last(t *testing.T) upstreamCall {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.calls, "gateway was not called")
	return g.calls[len(g.calls)-1]
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, upstream *fakeGateway, apiKey string, opts server.Options) http.Handler {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	opts.Gateway = gateway.NewClient(gateway.Config{BaseURL: up.URL, APIKey: apiKey, RateLimit: 1000, RateBurst: 1000})
	opts.Logger = testLogger()
	return server.New(opts).Handler()
}

func do(h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestProxyForwardsRequests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantMethod string
		wantPath   string
		wantQuery  string
	}{
		{"list feeds", http.MethodGet, "/api/feeds?tenant_id=t1", "", "GET", "/api/feeds", "tenant_id=t1"},
		{"create feed", http.MethodPost, "/api/feeds", `{"key":"acme"}`, "POST", "/api/feeds", ""},
		{"update feed", http.MethodPatch, "/api/feeds", `{"key":"acme","label":"Acme"}`, "PATCH", "/api/feeds", ""},
		{"delete feed", http.MethodDelete, "/api/feeds?key=acme", "", "DELETE", "/api/feeds", "key=acme"},
		{"feed headers", http.MethodGet, "/api/feeds/headers?feedKey=acme&save=true", "", "GET", "/api/feeds/headers", "feedKey=acme&save=true"},
		{"list rules", http.MethodGet, "/api/rules?feed_key=acme&rule_type=pricing", "", "GET", "/api/rules", "feed_key=acme&rule_type=pricing"},
		{"update rule", http.MethodPatch, "/api/rules?id=4", `{"priority":2}`, "PATCH", "/api/rules", "id=4"},
		{"list schedules", http.MethodGet, "/api/schedules", "", "GET", "/api/schedules", ""},
		{"execute schedule", http.MethodPost, "/api/schedules/execute?id=12", "", "POST", "/api/schedules/12/execute", ""},
		{"collections", http.MethodGet, "/api/collections", "", "GET", "/api/collections", ""},
		{"collection last update", http.MethodGet, "/api/collections/products_eu/last-update", "", "GET", "/api/collections/products_eu/last-update", ""},
		{"monitoring", http.MethodGet, "/api/scheduler/monitoring", "", "GET", "/api/scheduler/monitoring", ""},
		{"schema columns", http.MethodGet, "/api/schema/columns?modules=feeds,rules", "", "GET", "/api/schema/columns", "modules=feeds,rules"},
		{"workers", http.MethodGet, "/api/workers", "", "GET", "/api/workers", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeGateway{status: http.StatusOK, body: `{"data":[]}`}
			h := newTestServer(t, upstream, "secret-key", server.Options{})

			w := do(h, tt.method, tt.target, tt.body, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"data":[]}`, w.Body.String())

			call := upstream.last(t)
			assert.Equal(t, tt.wantMethod, call.Method)
			assert.Equal(t, tt.wantPath, call.Path)
			assert.Equal(t, tt.wantQuery, call.Query)
			assert.Equal(t, "secret-key", call.Key)
			assert.Equal(t, tt.body, call.Body)
		})
	}
}

func TestProxyMissingAPIKey(t *testing.T) {
	upstream := &fakeGateway{status: http.StatusOK, body: `{}`}
	h := newTestServer(t, upstream, "", server.Options{})

	w := do(h, http.MethodGet, "/api/feeds", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{
		"error": "Gateway API key configuration missing",
		"details": "Set GATEWAY_API_KEY (or NEXT_PUBLIC_GATEWAY_API_KEY) in the server environment"
	}`, w.Body.String())
	assert.Zero(t, upstream.count())
}

func TestProxyUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
		want   string
	}{
		{"not found", http.MethodGet, "/api/feeds?key=x", http.StatusNotFound, "feed not found", "Failed to fetch feeds"},
		{"bad request", http.MethodPost, "/api/rules", http.StatusBadRequest, `{"message":"bad config"}`, "Failed to create rule"},
		{"conflict", http.MethodDelete, "/api/feeds?key=x", http.StatusConflict, "has rules", "Failed to delete feed"},
		{"server error", http.MethodPost, "/api/schedules/execute?id=3", http.StatusBadGateway, "worker down", "Failed to execute schedule"},
		{"unavailable", http.MethodGet, "/api/workers", http.StatusServiceUnavailable, "", "Failed to fetch workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeGateway{status: tt.status, body: tt.body}
			h := newTestServer(t, upstream, "k", server.Options{})

			w := do(h, tt.method, tt.target, "", nil)

			assert.Equal(t, tt.status, w.Code)
			var got struct {
				Error   string `json:"error"`
				Details string `json:"details"`
			}
			require.NoError(t, jsonUnmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.Error)
			assert.Equal(t, tt.body, got.Details)
		})
	}
}

func TestProxyEmptyAndInvalidBodies(t *testing.T) {
	t.Run("empty 2xx becomes object", func(t *testing.T) {
		h := newTestServer(t, &fakeGateway{status: http.StatusNoContent}, "k", server.Options{})
		w := do(h, http.MethodDelete, "/api/rules?id=1", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
	})

	t.Run("created status kept", func(t *testing.T) {
		h := newTestServer(t, &fakeGateway{status: http.StatusCreated, body: `{"id":9}`}, "k", server.Options{})
		w := do(h, http.MethodPost, "/api/rules", `{}`, nil)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":9}`, w.Body.String())
	})

	t.Run("invalid JSON is an internal error", func(t *testing.T) {
		h := newTestServer(t, &fakeGateway{status: http.StatusOK, body: "<html>"}, "k", server.Options{})
		w := do(h, http.MethodGet, "/api/feeds", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Internal server error")
	})
}

func TestProxyNetworkFailure(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	addr := up.URL
	up.Close()

	h := server.New(server.Options{
		Gateway: gateway.NewClient(gateway.Config{BaseURL: addr, APIKey: "k", Timeout: time.Second}),
		Logger:  testLogger(),
	}).Handler()

	w := do(h, http.MethodGet, "/api/feeds", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"Internal server error"`)
}

func TestProxyRequiredParams(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"headers without feedKey", http.MethodGet, "/api/feeds/headers?tenant_id=t1"},
		{"execute without id", http.MethodPost, "/api/schedules/execute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeGateway{status: http.StatusOK, body: `{}`}
			h := newTestServer(t, upstream, "k", server.Options{})

			w := do(h, tt.method, tt.target, "", nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.Zero(t, upstream.count())
		})
	}
}

func TestTypesenseHealth(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{})
		w := do(h, http.MethodGet, "/api/typesense/health", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Typesense configuration missing")
	})

	t.Run("uses typesense key header", func(t *testing.T) {
		var gotKey, gotPath string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get(gateway.HeaderTypesenseAPIKey)
			gotPath = r.URL.Path
			_, _ = io.WriteString(w, `{"ok":true}`)
		}))
		defer ts.Close()

		h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{
			Typesense: gateway.NewClient(gateway.Config{BaseURL: ts.URL, APIKey: "ts-key", KeyHeader: gateway.HeaderTypesenseAPIKey}),
		})
		w := do(h, http.MethodGet, "/api/typesense/health", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		assert.Equal(t, "ts-key", gotKey)
		assert.Equal(t, "/health", gotPath)
	})
}

func TestHealthIsPublic(t *testing.T) {
	gate := auth.NewGate(auth.NewVerifier("secret", auth.DefaultAudience), profileStore{}, testLogger())
	h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{Gate: gate})

	w := do(h, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(server.HeaderRequestID))
}

// profileStore serves fixed profiles keyed by user ID.
type profileStore map[string]*models.Profile

func (p profileStore) ProfileByID(_ context.Context, id string) (*models.Profile, error) {
	if prof, ok := p[id]; ok {
		return prof, nil
	}
	return nil, auth.ErrProfileNotFound
}

func bearer(t *testing.T, v *auth.Verifier, sub string) http.Header {
	t.Helper()
	token, err := v.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestProxyPermissions(t *testing.T) {
	v := auth.NewVerifier("secret", auth.DefaultAudience)
	gate := auth.NewGate(v, profileStore{
		"viewer": {ID: "viewer", RoleName: "viewer", IsActive: true, Permissions: auth.RoleViewer.PermissionNames()},
		"editor": {ID: "editor", RoleName: "editor", IsActive: true, Permissions: auth.RoleEditor.PermissionNames()},

		// An editor whose rules:write grant was revoked, and a custom role.
		"revoked": {ID: "revoked", RoleName: "editor", IsActive: true, Permissions: []string{"feeds:read", "rules:read"}},
		"custom":  {ID: "custom", RoleName: "schedule-runner", IsActive: true, Permissions: []string{"schedules:execute"}},
	}, testLogger())

	tests := []struct {
		name   string
		user   string
		method string
		target string
		status int
	}{
		{"anonymous read", "", http.MethodGet, "/api/feeds", http.StatusUnauthorized},
		{"viewer read", "viewer", http.MethodGet, "/api/feeds", http.StatusOK},
		{"viewer write", "viewer", http.MethodPost, "/api/rules", http.StatusForbidden},
		{"viewer execute", "viewer", http.MethodPost, "/api/schedules/execute?id=1", http.StatusForbidden},
		{"editor write", "editor", http.MethodPost, "/api/rules", http.StatusOK},
		{"editor execute", "editor", http.MethodPost, "/api/schedules/execute?id=1", http.StatusOK},
		{"editor admin", "editor", http.MethodGet, "/api/admin/stats", http.StatusForbidden},
		{"revoked grant write", "revoked", http.MethodPost, "/api/rules", http.StatusForbidden},
		{"revoked grant read", "revoked", http.MethodGet, "/api/rules", http.StatusOK},
		{"custom role execute", "custom", http.MethodPost, "/api/schedules/execute?id=1", http.StatusOK},
		{"custom role read", "custom", http.MethodGet, "/api/feeds", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeGateway{status: http.StatusOK, body: `{}`}, "k", server.Options{Gate: gate})
			var header http.Header
			if tt.user != "" {
				header = bearer(t, v, tt.user)
			}
			w := do(h, tt.method, tt.target, "", header)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMe(t *testing.T) {
	v := auth.NewVerifier("secret", auth.DefaultAudience)
	gate := auth.NewGate(v, profileStore{
		"pending": {ID: "pending", Email: "p@example.com", RoleName: "viewer", IsActive: false, Permissions: auth.RoleViewer.PermissionNames()},
	}, testLogger())
	h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{Gate: gate})

	w := do(h, http.MethodGet, "/api/me", "", bearer(t, v, "pending"))
	require.Equal(t, http.StatusOK, w.Code)

	var me models.Me
	require.NoError(t, jsonUnmarshal(w.Body.Bytes(), &me))
	assert.False(t, me.Profile.IsActive)
	assert.Equal(t, "viewer", me.Role)

	// The same inactive user is refused everywhere else.
	w = do(h, http.MethodGet, "/api/feeds", "", bearer(t, v, "pending"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Account pending approval"}`, w.Body.String())
}

func TestRequestMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	h := newTestServer(t, &fakeGateway{status: http.StatusInternalServerError, body: "boom"}, "k", server.Options{Metrics: collector})

	do(h, http.MethodGet, "/api/workers", "", nil)
	do(h, http.MethodGet, "/api/collections/a/last-update", "", nil)
	do(h, http.MethodGet, "/api/collections/b/last-update", "", nil)

	snap := collector.Snapshot()
	routes := map[string]metrics.OperationSnapshot{}
	for _, r := range snap.Routes {
		routes[r.Name] = r
	}
	assert.Equal(t, int64(1), routes["GET /api/workers"].Errors)
	assert.Equal(t, int64(2), routes["GET /api/collections/{name}/last-update"].Count)

	upstream := map[string]metrics.OperationSnapshot{}
	for _, u := range snap.Upstream {
		upstream[u.Name] = u
	}
	assert.Equal(t, int64(1), upstream["fetch workers"].Errors)
}
