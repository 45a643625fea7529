package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-api/apiserver/config"
	"github.com/tailored-api/apiserver/internal/auth"
	"github.com/tailored-api/apiserver/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:    "Tailored API",
		Env:        "test",
		LogLevel:   "error",
		ServerPort: 0,
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret",
			JWTAlgorithm:       "HS256",
			TokenTTLMinutes:    60,
			PasswordIterations: auth.DefaultHashIterations,
		},
		CORS: config.CORSConfig{FrontendOrigin: "http://app.test"},
		Storage: config.StorageConfig{
			Backend: config.StorageBackendMemory,
			Bucket:  "exports",
		},
		MQ: config.MQConfig{
			Backend:       config.MQBackendMemory,
			EventsChannel: "account-events",
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(context.Background(), testConfig(), WithLogger(logging.NewWithWriter(io.Discard, "error", "test", "test")))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts
}

type client struct {
	t    *testing.T
	base string
}

func (c client) do(method, path, token string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var payload map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp, payload
}

func (c client) signup(email, password, tier string) string {
	c.t.Helper()
	body := map[string]string{"email": email, "password": password}
	if tier != "" {
		body["package_tier"] = tier
	}
	resp, payload := c.do(http.MethodPost, "/auth/signup", "", body)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, "signup payload: %v", payload)
	assert.Equal(c.t, "bearer", payload["token_type"])
	token, _ := payload["access_token"].(string)
	require.NotEmpty(c.t, token)
	return token
}

func featureByKey(t *testing.T, payload map[string]any, key string) map[string]any {
	t.Helper()
	features, ok := payload["features"].([]any)
	require.True(t, ok, "features missing from %v", payload)
	for _, raw := range features {
		feature := raw.(map[string]any)
		if feature["key"] == key {
			return feature
		}
	}
	t.Fatalf("feature %q not found", key)
	return nil
}

func TestNewRequiresSigningSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	_, err := New(context.Background(), cfg, WithLogger(logging.NewWithWriter(io.Discard, "error", "test", "test")))
	assert.ErrorIs(t, err, auth.ErrConfiguration)
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	logger := WithLogger(logging.NewWithWriter(io.Discard, "error", "test", "test"))

	cfg := testConfig()
	cfg.Storage.Backend = "s3"
	_, err := New(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "open storage")

	cfg = testConfig()
	cfg.MQ.Backend = "kafka"
	_, err = New(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "open mq")
}

func TestHealth(t *testing.T) {
	c := client{t: t, base: newTestServer(t).URL}
	for _, path := range []string{"/", "/healthz"} {
		resp, payload := c.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", payload["status"])
		assert.Equal(t, "Tailored API", payload["service"])
	}
}

func TestSignupUpgradeFlow(t *testing.T) {
	c := client{t: t, base: newTestServer(t).URL}

	token := c.signup("A@X.com", "secret1", "")

	resp, me := c.do(http.MethodGet, "/dashboard/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := me["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "free", user["package_tier"])
	assert.NotContains(t, user, "credential_hash")
	assert.Equal(t, false, featureByKey(t, me, "reports")["enabled"])

	resp, plan := c.do(http.MethodPut, "/account/plan", token, map[string]string{"package_tier": "pro"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pro", plan["package_tier"])

	// The token still carries tier=free; entitlement follows the stored record.
	resp, me = c.do(http.MethodGet, "/dashboard/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reports := featureByKey(t, me, "reports")
	assert.Equal(t, true, reports["enabled"])
	assert.Equal(t, float64(10), reports["limit"])

	resp, content := c.do(http.MethodGet, "/api/content", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Content for pro user", content["summary"])
	assert.NotNil(t, content["data_pro"])
	assert.Nil(t, content["data_enterprise"])
	assert.Nil(t, content["analytics"])

	resp, plan = c.do(http.MethodGet, "/account/plan", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pro", plan["package_tier"])
}

func TestSignupErrors(t *testing.T) {
	c := client{t: t, base: newTestServer(t).URL}
	c.signup("dup@x.com", "secret1", "enterprise")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"duplicate email", map[string]string{"email": " DUP@x.com ", "password": "secret1"}},
		{"short password", map[string]string{"email": "b@x.com", "password": "12345"}},
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret1"}},
		{"unknown tier", map[string]string{"email": "c@x.com", "password": "secret1", "package_tier": "platinum"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := c.do(http.MethodPost, "/auth/signup", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}
	c.signup("login@x.com", "secret1", "pro")

	resp, payload := c.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "LOGIN@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := payload["access_token"].(string)

	resp, me := c.do(http.MethodGet, "/dashboard/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pro", me["user"].(map[string]any)["package_tier"])

	form := url.Values{"username": {"login@x.com"}, "password": {"secret1"}}
	formResp, err := http.PostForm(ts.URL+"/auth/login", form)
	require.NoError(t, err)
	formResp.Body.Close()
	assert.Equal(t, http.StatusOK, formResp.StatusCode)

	_, wrongPassword := c.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "login@x.com", "password": "nope123"})
	resp, unknownEmail := c.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := client{t: t, base: newTestServer(t).URL}

	for _, token := range []string{"", "garbage", "a.b.c"} {
		resp, payload := c.do(http.MethodGet, "/dashboard/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		assert.Equal(t, "could not validate credentials", payload["error"])
	}
}

func TestExport(t *testing.T) {
	c := client{t: t, base: newTestServer(t).URL}

	free := c.signup("free@x.com", "secret1", "free")
	resp, _ := c.do(http.MethodPost, "/api/export", free, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	pro := c.signup("pro@x.com", "secret1", "pro")
	resp, payload := c.do(http.MethodPost, "/api/export", pro, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	key, _ := payload["key"].(string)
	assert.True(t, strings.HasPrefix(key, "exports/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
	assert.Greater(t, payload["size"], float64(0))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/auth/signup", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}
	c.do(http.MethodGet, "/healthz", "", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `route="/healthz"`)
}
