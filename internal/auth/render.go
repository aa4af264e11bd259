package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// PageData builds the data every page template receives: the handler's own
// values plus the drained flash messages, the current user and the CSRF field.
// Flashes are drained here so each message is shown exactly once.
func PageData(c *gin.Context, data gin.H) gin.H {
	page := gin.H{}
	for k, v := range data {
		page[k] = v
	}

	flashes := Flashes{}
	if session := GetSession(c); session != nil {
		flashes = session.Drain()
	}
	page["Flashes"] = flashes.TemplateData()
	page["CurrentUser"] = CurrentUser(c)
	page["CSRFField"] = csrf.TemplateField(c.Request)

	return page
}

// Render renders a named template with PageData.
func Render(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name, PageData(c, data))
}
