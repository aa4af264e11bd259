package http

import (
	"embed"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/auth"
	"github.com/mrlokans/passage/internal/requestid"
)

//go:embed templates/*.html
var templatesFS embed.FS

// loadTemplates parses the page templates from dir, or the embedded set
// when dir is empty.
func loadTemplates(dir string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"subtract": func(a, b int) int {
			return a - b
		},
	}

	tmpl := template.New("").Funcs(funcMap)
	var err error
	if dir == "" {
		tmpl, err = tmpl.ParseFS(templatesFS, "templates/*.html")
	} else {
		tmpl, err = tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return tmpl, nil
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	tmpl, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	router.Use(requestid.Middleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	router.Use(cfg.Sessions.SessionLoadSave())
	router.Use(cfg.Authenticator.Handler())

	router.SetHTMLTemplate(tmpl)

	var db Pinger
	if cfg.Database != nil {
		db = cfg.Database
	}
	health := NewHealthController(db, cfg.Version)
	pages := NewPagesController()

	// Health endpoints
	router.GET("/health", health.Status)

	// Pages
	router.GET("/", pages.Welcome)
	router.GET("/dashboard", auth.RequireUser(), pages.Dashboard)

	// Account routes
	cfg.AuthController.RegisterRoutes(router)

	// Account activity (if the audit trail is available)
	if cfg.AuditService != nil {
		activity := NewAuditController(cfg.AuditService)
		router.GET("/activity", auth.RequireUser(), activity.ActivityPage)
		router.GET("/api/activity", auth.RequireUser(), activity.GetActivity)
	}

	return router, nil
}
