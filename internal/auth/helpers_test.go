package auth

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/passage/internal/config"
	"github.com/mrlokans/passage/internal/database"
	"github.com/mrlokans/passage/internal/database/users"
	"github.com/mrlokans/passage/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testCost = bcrypt.MinCost

type testEnv struct {
	db       *database.Database
	users    *users.Repository
	sessions *SessionManager
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDatabaseWithLogLevel(filepath.Join(t.TempDir(), "auth.db"), "silent")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	sm := NewSessionManager(sqlDB, config.Auth{SessionLifetime: time.Hour})

	return &testEnv{
		db:       db,
		users:    users.NewRepository(db.DB),
		sessions: sm,
	}
}

func (e *testEnv) createUser(t *testing.T, name, email, password string) *entities.User {
	t.Helper()

	hash, err := HashPassword(password, testCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user, err := e.users.CreateUser(context.Background(), name, email, hash)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// testTemplates stands in for the page templates: each page prints its
// flashes and form values on separate lines so tests can match on them.
const testTemplates = `
{{define "flashes"}}{{range index .Flashes "success_msg"}}success: {{.}}
{{end}}{{range index .Flashes "error_msg"}}error: {{.}}
{{end}}{{range index .Flashes "error"}}generic: {{.}}
{{end}}{{end}}
{{define "login.html"}}login page
{{template "flashes" .}}{{end}}
{{define "register.html"}}register page
name={{.Name}} email={{.Email}}
{{template "flashes" .}}{{end}}
{{define "home.html"}}home page
{{template "flashes" .}}{{end}}
{{define "dashboard.html"}}Welcome, {{.CurrentUser.Name}}
{{template "flashes" .}}{{end}}
`

// newTestRouter wires the account routes the way the application does,
// without CSRF protection.
func (e *testEnv) newTestRouter(t *testing.T, throttle *LoginThrottle, auditor Auditor) *gin.Engine {
	t.Helper()

	verifier, err := NewVerifier(e.users, testCost)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	authenticator := NewAuthenticator(e.users, e.sessions)
	controller := NewAuthController(
		NewRegistrar(e.users, testCost, 1),
		verifier,
		authenticator,
		throttle,
		auditor,
	)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	router.Use(e.sessions.SessionLoadSave())
	router.Use(authenticator.Handler())

	controller.RegisterRoutes(router)
	router.GET("/", func(c *gin.Context) {
		Render(c, http.StatusOK, "home.html", nil)
	})
	router.GET("/dashboard", RequireUser(), func(c *gin.Context) {
		Render(c, http.StatusOK, "dashboard.html", nil)
	})
	return router
}

// client carries the session cookie between requests.
type client struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func newClient(t *testing.T, router http.Handler) *client {
	return &client{t: t, router: router}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()

	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name != "session" {
			continue
		}
		if cookie.MaxAge < 0 || cookie.Value == "" {
			c.cookie = nil
		} else {
			c.cookie = cookie
		}
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) token() string {
	if c.cookie == nil {
		return ""
	}
	return c.cookie.Value
}
