// ABOUTME: HTTP tests for the registry adapter under /api/sml
// ABOUTME: Covers visibility filtering per caller tier, execution, and docs rendering

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/users"
)

func do(t *testing.T, h http.Handler, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func execute(t *testing.T, h http.Handler, token string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return do(t, h, http.MethodPost, "/api/sml/execute", token, body, headers...)
}

// tokenFor creates an account with roles and returns a bearer token for it.
func tokenFor(t *testing.T, s *Server, email string, roles ...string) string {
	t.Helper()
	u, err := s.Users().Create(context.Background(), users.CreateUserRequest{
		Email: email, Name: "Caller", Password: "password1", Roles: roles,
	})
	require.NoError(t, err)
	token, err := s.verifier.Generate(&auth.Identity{ID: u.ID, Email: u.Email, Roles: u.Roles}, time.Hour)
	require.NoError(t, err)
	return token
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestSML_Meta(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	admin := tokenFor(t, s, "admin@example.com", "admin")

	t.Run("anonymous gets public meta", func(t *testing.T) {
		rec, body := do(t, s.Handler(), http.MethodGet, "/api/sml/meta", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		d := data(body)
		assert.NotContains(t, d, "owners")
		assert.NotContains(t, d, "visibility")
		assert.Contains(t, stringList(d["domains"]), "system")
		assert.NotContains(t, stringList(d["domains"]), "audit")
	})

	t.Run("admin gets full meta", func(t *testing.T) {
		rec, body := do(t, s.Handler(), http.MethodGet, "/api/sml/meta", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		d := data(body)
		owners, ok := d["owners"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "system", owners["system.health"])
		vis := d["visibility"].(map[string]any)
		assert.Equal(t, "hidden", vis["actions.users.welcome"])
	})
}

func TestSML_List(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	member := tokenFor(t, s, "member@example.com")
	admin := tokenFor(t, s, "admin@example.com", "admin")

	tests := []struct {
		name       string
		token      string
		path       string
		contains   []string
		notContain []string
	}{
		{
			name:       "anonymous top level",
			path:       "/api/sml/list",
			contains:   []string{"system"},
			notContain: []string{"actions", "audit", "config"},
		},
		{
			name:     "anonymous system domain",
			path:     "/api/sml/list?path=system",
			contains: []string{"boot", "health", "time"},
		},
		{
			name:     "member sees internal operations",
			token:    member,
			path:     "/api/sml/list?path=notifications",
			contains: []string{"list", "send", "sent"},
		},
		{
			name:     "admin sees every tier",
			token:    admin,
			path:     "/api/sml/list",
			contains: []string{"actions", "audit", "config", "data", "notifications", "system"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s.Handler(), http.MethodGet, tt.path, tt.token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			children := stringList(data(body)["children"])
			for _, c := range tt.contains {
				assert.Contains(t, children, c)
			}
			for _, c := range tt.notContain {
				assert.NotContains(t, children, c)
			}
		})
	}
}

func TestSML_List_UnknownPrefixIsEmpty(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec, body := do(t, s.Handler(), http.MethodGet, "/api/sml/list?path=nope", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	children, ok := data(body)["children"].([]any)
	require.True(t, ok, "children should be an empty array, not null")
	assert.Empty(t, children)
}

func TestSML_Resolve(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	member := tokenFor(t, s, "member@example.com")
	admin := tokenFor(t, s, "admin@example.com", "admin")

	tests := []struct {
		name   string
		token  string
		path   string
		status int
		kind   string
		code   string
	}{
		{name: "public operation", path: "system.health", status: http.StatusOK, kind: "operation"},
		{name: "event", path: "system.boot", status: http.StatusOK, kind: "event"},
		{name: "namespace", path: "system", status: http.StatusOK, kind: "namespace"},
		{name: "hidden looks missing", path: "actions.users.welcome", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "hidden namespace looks missing", token: member, path: "actions", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "admin op looks missing to member", token: member, path: "config.get", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "internal op visible to member", token: member, path: "notifications.send", status: http.StatusOK, kind: "operation"},
		{name: "admin resolves hidden", token: admin, path: "actions.users.welcome", status: http.StatusOK, kind: "operation"},
		{name: "unknown", path: "nope.nothing", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "missing path", path: "", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s.Handler(), http.MethodGet, "/api/sml/resolve?path="+tt.path, tt.token, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(body))
				return
			}
			d := data(body)
			assert.Equal(t, true, d["exists"])
			assert.Equal(t, tt.kind, d["kind"])
		})
	}
}

func TestSML_Resolve_OwnerOnlyForAdmins(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	admin := tokenFor(t, s, "admin@example.com", "admin")

	_, body := do(t, s.Handler(), http.MethodGet, "/api/sml/resolve?path=system.health", "", nil)
	assert.NotContains(t, data(body), "owner")

	_, body = do(t, s.Handler(), http.MethodGet, "/api/sml/resolve?path=system.health", admin, nil)
	assert.Equal(t, "system", data(body)["owner"])
}

func TestSML_Execute(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec, body := execute(t, s.Handler(), "", map[string]any{"path": "system.health"}, "X-Request-ID", "req-123")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", body["status"])

	d := data(body)
	assert.Equal(t, "system.health", d["path"])
	assert.Equal(t, "req-123", d["traceId"])
	result := d["result"].(map[string]any)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "test", result["version"])
	assert.Equal(t, true, result["locked"])
}

func TestSML_Execute_Errors(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	member := tokenFor(t, s, "member@example.com")

	tests := []struct {
		name   string
		token  string
		body   any
		status int
		code   string
	}{
		{
			name:   "unknown operation",
			body:   map[string]any{"path": "nope.nothing"},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "admin operation as member",
			token:  member,
			body:   map[string]any{"path": "config.get"},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "internal operation anonymously",
			body:   map[string]any{"path": "notifications.list"},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "hidden operation as member",
			token:  member,
			body:   map[string]any{"path": "actions.users.welcome", "params": map[string]any{"userId": "x"}},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "wrong param type",
			body:   map[string]any{"path": "system.time", "params": map[string]any{"timezone": 5}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "handler rejects param",
			body:   map[string]any{"path": "system.time", "params": map[string]any{"timezone": "Mars/Olympus"}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "missing path",
			body:   map[string]any{"params": map[string]any{}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "malformed body",
			body:   `{"path":`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := execute(t, s.Handler(), tt.token, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestSML_Execute_AuditTrail(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	admin := tokenFor(t, s, "admin@example.com", "admin")

	rec, _ := execute(t, s.Handler(), "", map[string]any{"path": "system.time"}, "X-Request-ID", "trace-audit")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := execute(t, s.Handler(), admin, map[string]any{"path": "audit.executions.list"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, ok := data(body)["result"].([]any)
	require.True(t, ok, rec.Body.String())
	var traces []string
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			if tr, ok := m["traceId"].(string); ok {
				traces = append(traces, tr)
			}
		}
	}
	assert.Contains(t, traces, "trace-audit")
}

func TestSML_Docs(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	admin := tokenFor(t, s, "admin@example.com", "admin")

	rec, _ := do(t, s.Handler(), http.MethodGet, "/api/sml/docs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<h1>Operations</h1>")
	assert.Contains(t, rec.Body.String(), "<code>system.health</code>")
	assert.NotContains(t, rec.Body.String(), "audit.executions.list")

	rec, _ = do(t, s.Handler(), http.MethodGet, "/api/sml/docs", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "audit.executions.list")
}
