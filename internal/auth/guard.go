package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/entities"
)

// Paths the guard and the account handlers redirect between.
const (
	LoginPath     = "/users/login"
	DashboardPath = "/dashboard"
)

// GuardMessage is flashed when an anonymous client requests a protected page.
const GuardMessage = "Please log in to view that resource."

// Decision is the outcome of a guard check.
type Decision struct {
	Allow      bool
	RedirectTo string
	Flash      entities.FlashMessage
}

// Guard decides whether a request with the given current user may proceed.
// It has no side effects.
func Guard(user *entities.User) Decision {
	if user != nil {
		return Decision{Allow: true}
	}
	return Decision{
		RedirectTo: LoginPath,
		Flash: entities.FlashMessage{
			Category: entities.FlashError,
			Text:     GuardMessage,
		},
	}
}

// RequireUser returns a middleware that applies Guard ahead of protected
// routes: denied requests get the flash message and a redirect.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := Guard(CurrentUser(c))
		if decision.Allow {
			c.Next()
			return
		}

		session := GetSession(c)
		session.Push(decision.Flash.Category, decision.Flash.Text)
		if c.Request.Method == http.MethodGet {
			session.SetReturnTo(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, decision.RedirectTo)
		c.Abort()
	}
}
