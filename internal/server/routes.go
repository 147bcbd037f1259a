package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/auth"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/gateway"
)

// maxBodyBytes caps request bodies forwarded upstream.
const maxBodyBytes = 10 << 20

// Configuration hints returned when upstream settings are missing.
const (
	missingKeyMessage       = "Gateway API key configuration missing"
	missingKeyDetails       = "Set GATEWAY_API_KEY (or NEXT_PUBLIC_GATEWAY_API_KEY) in the server environment"
	missingGatewayDetails   = "Set NEXT_PUBLIC_API_GATEWAY_URL in the server environment"
	missingTypesenseMessage = "Typesense configuration missing"
	missingTypesenseDetails = "Set TYPESENSE_URL (or NEXT_PUBLIC_TYPESENSE_URL) and a Typesense API key in the server environment"
)

// proxyRoute maps one local endpoint onto a gateway endpoint. Upstream may
// hold {placeholders}; each is filled from the chi URL parameter of the same
// name or, failing that, from a query parameter which is then not forwarded.
type proxyRoute struct {
	Op       string
	Method   string
	Pattern  string
	Upstream string
	Perm     auth.Permission
	Required []string
}

var proxyRoutes = []proxyRoute{
	{Op: "fetch feeds", Method: http.MethodGet, Pattern: "/api/feeds", Upstream: "/api/feeds", Perm: auth.PermFeedsRead},
	{Op: "create feed", Method: http.MethodPost, Pattern: "/api/feeds", Upstream: "/api/feeds", Perm: auth.PermFeedsWrite},
	{Op: "update feed", Method: http.MethodPatch, Pattern: "/api/feeds", Upstream: "/api/feeds", Perm: auth.PermFeedsWrite},
	{Op: "delete feed", Method: http.MethodDelete, Pattern: "/api/feeds", Upstream: "/api/feeds", Perm: auth.PermFeedsWrite},
	{Op: "fetch feed headers", Method: http.MethodGet, Pattern: "/api/feeds/headers", Upstream: "/api/feeds/headers", Perm: auth.PermFeedsRead, Required: []string{"feedKey"}},

	{Op: "fetch rules", Method: http.MethodGet, Pattern: "/api/rules", Upstream: "/api/rules", Perm: auth.PermRulesRead},
	{Op: "create rule", Method: http.MethodPost, Pattern: "/api/rules", Upstream: "/api/rules", Perm: auth.PermRulesWrite},
	{Op: "update rule", Method: http.MethodPatch, Pattern: "/api/rules", Upstream: "/api/rules", Perm: auth.PermRulesWrite},
	{Op: "delete rule", Method: http.MethodDelete, Pattern: "/api/rules", Upstream: "/api/rules", Perm: auth.PermRulesWrite},

	{Op: "fetch schedules", Method: http.MethodGet, Pattern: "/api/schedules", Upstream: "/api/schedules", Perm: auth.PermSchedulesRead},
	{Op: "create schedule", Method: http.MethodPost, Pattern: "/api/schedules", Upstream: "/api/schedules", Perm: auth.PermSchedulesWrite},
	{Op: "update schedule", Method: http.MethodPatch, Pattern: "/api/schedules", Upstream: "/api/schedules", Perm: auth.PermSchedulesWrite},
	{Op: "delete schedule", Method: http.MethodDelete, Pattern: "/api/schedules", Upstream: "/api/schedules", Perm: auth.PermSchedulesWrite},
	{Op: "execute schedule", Method: http.MethodPost, Pattern: "/api/schedules/execute", Upstream: "/api/schedules/{id}/execute", Perm: auth.PermSchedulesExecute},

	{Op: "fetch collections", Method: http.MethodGet, Pattern: "/api/collections", Upstream: "/api/collections", Perm: auth.PermMonitoringRead},
	{Op: "fetch collection last update", Method: http.MethodGet, Pattern: "/api/collections/{name}/last-update", Upstream: "/api/collections/{name}/last-update", Perm: auth.PermMonitoringRead},
	{Op: "fetch monitoring data", Method: http.MethodGet, Pattern: "/api/scheduler/monitoring", Upstream: "/api/scheduler/monitoring", Perm: auth.PermMonitoringRead},
	{Op: "fetch schema columns", Method: http.MethodGet, Pattern: "/api/schema/columns", Upstream: "/api/schema/columns", Perm: auth.PermMonitoringRead},
	{Op: "fetch workers", Method: http.MethodGet, Pattern: "/api/workers", Upstream: "/api/workers", Perm: auth.PermMonitoringRead},
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// resolveUpstream fills the placeholders of rt.Upstream and returns the
// query string to forward.
func resolveUpstream(rt proxyRoute, r *http.Request) (string, string, error) {
	query := r.URL.Query()
	for _, name := range rt.Required {
		if query.Get(name) == "" {
			return "", "", fmt.Errorf("%s is required", name)
		}
	}

	consumed := false
	var missing string
	path := placeholderRe.ReplaceAllStringFunc(rt.Upstream, func(m string) string {
		name := m[1 : len(m)-1]
		if v := chi.URLParam(r, name); v != "" {
			return url.PathEscape(v)
		}
		if v := query.Get(name); v != "" {
			query.Del(name)
			consumed = true
			return url.PathEscape(v)
		}
		if missing == "" {
			missing = name
		}
		return m
	})
	if missing != "" {
		return "", "", fmt.Errorf("%s is required", missing)
	}

	if consumed {
		return path, query.Encode(), nil
	}
	return path, r.URL.RawQuery, nil
}

// forward is the one handler behind every proxy route.
func (s *Server) forward(rt proxyRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.gateway.Configured() {
			s.writeConfigError(w)
			return
		}

		path, rawQuery, err := resolveUpstream(rt, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing required parameter", err.Error())
			return
		}

		var body []byte
		if r.Body != nil {
			body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
				return
			}
		}

		start := time.Now()
		resp, err := s.gateway.Do(r.Context(), gateway.Request{
			Method:      rt.Method,
			Path:        path,
			RawQuery:    rawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		s.metrics.RecordUpstream(rt.Op, time.Since(start), err != nil || (resp != nil && resp.StatusCode >= 500))
		s.relay(w, rt.Op, resp, err)
	}
}

// relay translates a gateway answer into the local response envelope.
func (s *Server) relay(w http.ResponseWriter, op string, resp *gateway.Response, err error) {
	if err != nil {
		if errors.Is(err, gateway.ErrMissingAPIKey) || errors.Is(err, gateway.ErrMissingBaseURL) {
			s.writeConfigError(w)
			return
		}
		s.logger.Error("gateway request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	if !resp.IsSuccess() {
		s.logger.Warn("gateway returned error", "op", op, "status", resp.StatusCode, "body", truncate(string(resp.Body), maxArgLogLen))
		writeError(w, resp.StatusCode, "Failed to "+op, string(resp.Body))
		return
	}

	status := resp.StatusCode
	body := resp.Body
	if len(body) == 0 {
		// No-content answers still carry a JSON object.
		body = []byte("{}")
		if status == http.StatusNoContent {
			status = http.StatusOK
		}
	}
	if !json.Valid(body) {
		s.logger.Error("gateway returned invalid JSON", "op", op, "body", truncate(string(body), maxArgLogLen))
		writeError(w, http.StatusInternalServerError, "Internal server error", "invalid JSON from gateway")
		return
	}
	writeRaw(w, status, body)
}

func (s *Server) writeConfigError(w http.ResponseWriter) {
	s.logger.Error("gateway not configured")
	details := missingKeyDetails
	if s.gateway.HasAPIKey() {
		details = missingGatewayDetails
	}
	writeError(w, http.StatusInternalServerError, missingKeyMessage, details)
}

func (s *Server) handleTypesenseHealth(w http.ResponseWriter, r *http.Request) {
	if s.typesense == nil || !s.typesense.Configured() {
		writeError(w, http.StatusInternalServerError, missingTypesenseMessage, missingTypesenseDetails)
		return
	}
	start := time.Now()
	resp, err := s.typesense.Do(r.Context(), gateway.Request{Method: http.MethodGet, Path: "/health"})
	s.metrics.RecordUpstream("check typesense health", time.Since(start), err != nil)
	s.relay(w, "check Typesense health", resp, err)
}
