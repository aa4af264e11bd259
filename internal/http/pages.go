package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/auth"
)

// PagesController serves the public welcome page and the dashboard.
type PagesController struct{}

func NewPagesController() *PagesController {
	return &PagesController{}
}

// Welcome renders the landing page.
// GET /
func (pc *PagesController) Welcome(c *gin.Context) {
	auth.Render(c, http.StatusOK, "welcome.html", gin.H{"Title": "Welcome"})
}

// Dashboard renders the signed-in user's dashboard. The route is guarded,
// so a current user is always present.
// GET /dashboard
func (pc *PagesController) Dashboard(c *gin.Context) {
	data := gin.H{"Title": "Dashboard"}
	if s := auth.GetSession(c); s != nil {
		if at := s.LoginAt(); !at.IsZero() {
			data["LoginAt"] = at
		}
	}
	auth.Render(c, http.StatusOK, "dashboard.html", data)
}
