package auth

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/database/users"
	"github.com/mrlokans/passage/internal/entities"
)

// ContextKeyUser holds the resolved *entities.User for the current request.
const ContextKeyUser = "auth_user"

// UserFinder resolves a session's user id to a record.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*entities.User, error)
}

// Authenticator establishes and tears down session identities and resolves
// the current user for every request.
type Authenticator struct {
	users    UserFinder
	sessions *SessionManager
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(users UserFinder, sessions *SessionManager) *Authenticator {
	return &Authenticator{users: users, sessions: sessions}
}

// Login binds the user to the request's session, rotating the token.
func (a *Authenticator) Login(ctx context.Context, user *entities.User) error {
	return a.sessions.Login(ctx, user)
}

// Logout clears the session identity and invalidates the token. If the store
// cannot delete the session the user id is still removed from it.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		a.sessions.ClearUser(ctx)
		return err
	}
	return nil
}

// ResolveCurrentUser returns the session's user, or nil when anonymous.
// An id whose record no longer exists is removed from the session; other
// lookup failures leave the id in place and treat this request as anonymous.
func (a *Authenticator) ResolveCurrentUser(ctx context.Context) *entities.User {
	userID := a.sessions.UserID(ctx)
	if userID == 0 {
		return nil
	}

	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			a.sessions.ClearUser(ctx)
		} else {
			log.Printf("Failed to resolve current user %d: %v", userID, err)
		}
		return nil
	}
	return user
}

// Handler returns a Gin middleware that resolves the current user before any
// route logic runs. It must be installed after SessionLoadSave.
func (a *Authenticator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := a.ResolveCurrentUser(c.Request.Context()); user != nil {
			c.Set(ContextKeyUser, user)
		}
		c.Next()
	}
}

// CurrentUser retrieves the authenticated user from the context, or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// IsAuthenticated returns true if the request has a current user.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUser(c) != nil
}
