package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/passage/internal/config"
	"github.com/mrlokans/passage/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyLoginAt  = "login_at"
	SessionKeyFlash    = "flash"
	SessionKeyReturnTo = "return_to"
)

func init() {
	// Register types that will be stored in sessions
	gob.Register(time.Time{})
	gob.Register([]entities.FlashMessage{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by the
// sessions table in the application database.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}
	sm.IdleTimeout = sm.Lifetime / 2 // Half of lifetime for inactivity

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// Login binds the user to the session. The token is renewed first so an
// anonymous token planted before login can never carry an authenticated
// identity.
func (sm *SessionManager) Login(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	// Store user ID as int to match GetInt() retrieval
	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyLoginAt, time.Now())
	return nil
}

// Logout deletes the session from the store and invalidates its token.
// Values written afterwards (such as a flash message) go to a new session.
func (sm *SessionManager) Logout(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// UserID returns the authenticated user id, or 0 when anonymous.
func (sm *SessionManager) UserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, SessionKeyUserID))
}

// ClearUser drops a user id that no longer resolves to a record.
func (sm *SessionManager) ClearUser(ctx context.Context) {
	sm.Remove(ctx, SessionKeyUserID)
	sm.Remove(ctx, SessionKeyLoginAt)
}

// IsAuthenticated returns true if the session carries a user id.
func (sm *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return sm.UserID(ctx) != 0
}

// LoginAt returns when the current session was authenticated.
func (sm *SessionManager) LoginAt(ctx context.Context) time.Time {
	return sm.GetTime(ctx, SessionKeyLoginAt)
}
