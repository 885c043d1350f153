package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-auth-gate/internal/application/policy"
	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/config"
	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
	"github.com/go-auth-gate/internal/infrastructure/sqlite"
	"github.com/go-auth-gate/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *capturingSender) SendOTP(to, code string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[to] = code
	return nil
}

func (s *capturingSender) code(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[to]
}

func newTestServer(t *testing.T) (*httptest.Server, *capturingSender) {
	t.Helper()
	store, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := jwtinfra.NewProvider("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		OTPTTL:         10 * time.Minute,
		PostLoginPath:  "/dashboard",
		SignInPath:     "/",
		ProtectedPaths: []string{"/dashboard", "/profile"},
		MetricsEnabled: true,
	}
	sender := &capturingSender{codes: map[string]string{}}
	router := NewRouter(cfg, &Deps{
		Store:     store,
		Tokens:    tokens,
		OTPSender: sender,
		Patterns:  policy.StaticSource{`@aganitha\.ai$`},
		Metrics:   metrics.New(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, sender
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func post(t *testing.T, srv *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := noRedirectClient().Post(srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRouter_OTPSignInFlow(t *testing.T) {
	srv, sender := newTestServer(t)

	resp := post(t, srv, "/api/auth/request-otp", map[string]string{"email": "Ada@Aganitha.ai"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&issued))
	require.NotEmpty(t, issued.UserID)
	code := sender.code("Ada@Aganitha.ai")
	require.Len(t, code, 6)

	resp = post(t, srv, "/api/auth/verify-otp", map[string]string{"userId": issued.UserID, "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := findCookie(resp, session.CookieName)
	require.NotNil(t, cookie)

	// single use
	resp = post(t, srv, "/api/auth/verify-otp", map[string]string{"userId": issued.UserID, "otp": code})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv, "/dashboard", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv, "/", cookie)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = get(t, srv, "/api/auth/session", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&current))
	assert.Equal(t, issued.UserID, current.UserID)
}

func TestRouter_RequestOTPDomainNotAllowed(t *testing.T) {
	srv, sender := newTestServer(t)
	resp := post(t, srv, "/api/auth/request-otp", map[string]string{"email": "eve@example.com"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, sender.code("eve@example.com"))
}

func TestRouter_ProtectedWithoutSessionRedirects(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv, "/profile", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = get(t, srv, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TamperedCookieIsUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv, "/dashboard", &http.Cookie{Name: session.CookieName, Value: "a.b.c"})
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
}

func TestRouter_UnknownStrategyAndDisabledDirectory(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv, "/api/auth/signin/ldap", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv, "/api/auth/oauth/github/start", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv, "/health-check/ping", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	post(t, srv, "/api/auth/signin/verify-otp", map[string]string{})
	resp = get(t, srv, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "authgate_signins_total")
}
