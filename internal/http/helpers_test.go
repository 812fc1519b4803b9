package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"invtrack/internal/broadcast"
	"invtrack/internal/config"
	"invtrack/internal/http/handlers"
	applog "invtrack/internal/log"
	"invtrack/internal/repos"
	"invtrack/internal/services"
)

type testApp struct {
	app  *fiber.App
	db   *sqlx.DB
	deps *handlers.Deps
}

// newTestApp builds the real app over an in-memory database holding the
// seeded admin (admin/admin123) and one operator (oper/secret1).
func newTestApp(t *testing.T, opt handlers.Options) *testApp {
	t.Helper()
	services.BcryptCost = bcrypt.MinCost

	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"
	deps := handlers.NewDeps(db, cfg, broadcast.NewHub())

	ctx := context.Background()
	if _, err := deps.Auth.EnsureAdmin(ctx, "admin123"); err != nil {
		t.Fatal(err)
	}
	if _, err := deps.Auth.Register(ctx, "", services.RegisterInput{Username: "oper", Password: "secret1", Name: "Operator"}); err != nil {
		t.Fatal(err)
	}

	if opt.LoginAttempts == 0 {
		opt.LoginAttempts = 100
	}
	if opt.AccessLog == nil {
		opt.AccessLog = io.Discard
	}
	return &testApp{app: handlers.NewApp(deps, opt), db: db, deps: deps}
}

func (a *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrf fetches a token the way a browser would, from the login page cookie.
func (a *testApp) csrf(t *testing.T) string {
	t.Helper()
	tok := extractCookie(a.do(t, httptest.NewRequest("GET", "/login", nil)), "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

// form posts url-encoded values with the csrf cookie and field set.
func (a *testApp) form(t *testing.T, path, sid, csrfTok string, vals url.Values) *http.Response {
	t.Helper()
	vals.Set("csrf", csrfTok)
	req := httptest.NewRequest("POST", path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return a.do(t, req)
}

// login signs in through the form and returns the session id and csrf token.
func (a *testApp) login(t *testing.T, username, password string) (sid, csrfTok string) {
	t.Helper()
	csrfTok = a.csrf(t)
	resp := a.form(t, "/login", "", csrfTok, url.Values{"username": {username}, "password": {password}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	sid = extractCookie(resp, "sid")
	if sid == "" {
		t.Fatal("sid cookie missing")
	}
	return sid, csrfTok
}

func (a *testApp) page(t *testing.T, path, sid string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp := a.do(t, req)
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// token exchanges credentials for a bearer token.
func (a *testApp) token(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := a.api(t, "POST", "/api/v1/auth/token", "", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token %s: status %d body=%s", username, resp.StatusCode, body)
	}
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		t.Fatalf("token response %s: %v", body, err)
	}
	return out.AccessToken
}

// api sends a JSON request, authenticated with tok when it is not empty.
func (a *testApp) api(t *testing.T, method, path, tok string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp := a.do(t, req)
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	ReqID  string         `json:"req_id"`
	Took   float64        `json:"took"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects the JSON lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// jsonField decodes body as an object and returns one string field.
func jsonField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	s, _ := m[key].(string)
	return s
}

func jsonRequest(method, path, tok, raw string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req
}
