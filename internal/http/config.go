package http

import (
	"github.com/mrlokans/passage/internal/audit"
	"github.com/mrlokans/passage/internal/auth"
	"github.com/mrlokans/passage/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	// Sessions and current-user resolution
	Sessions      *auth.SessionManager
	Authenticator *auth.Authenticator

	// Account routes under /users
	AuthController *auth.AuthController

	// Audit trail for the activity pages (optional)
	AuditService *audit.Service

	// CSRF protection is enabled when the secret is set
	CSRFSecret    []byte
	SecureCookies bool

	// Directory of page templates; the embedded set is used when empty
	TemplatesPath string

	// Application info
	Version string
}
