package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/audit"
	"github.com/mrlokans/passage/internal/auth"
	auditRepo "github.com/mrlokans/passage/internal/database/audit"
	"github.com/mrlokans/passage/internal/entities"
)

const activityPageSize = 25

// AuditController shows the signed-in user their own authentication history.
type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// ActivityPage renders the current user's recent auth events.
// GET /activity
func (ac *AuditController) ActivityPage(c *gin.Context) {
	user := auth.CurrentUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	activity, err := ac.auditService.UserActivity(c.Request.Context(), user.ID, activityPageSize, (page-1)*activityPageSize)
	if err != nil {
		log.Printf("Failed to load activity for user %d: %v", user.ID, err)
		auth.GetSession(c).Push(entities.FlashGenericError, auth.MsgGeneric)
		c.Redirect(http.StatusFound, auth.DashboardPath)
		return
	}

	auth.Render(c, http.StatusOK, "activity.html", gin.H{
		"Title":       "Activity",
		"Events":      activity.Events,
		"CurrentPage": page,
		"TotalPages":  totalPages(activity.Total, activityPageSize),
		"TotalEvents": activity.Total,
	})
}

// GetActivity returns the current user's auth events as JSON.
// GET /api/activity
func (ac *AuditController) GetActivity(c *gin.Context) {
	user := auth.CurrentUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > auditRepo.MaxPageSize {
		limit = activityPageSize
	}

	activity, err := ac.auditService.UserActivity(c.Request.Context(), user.ID, limit, (page-1)*limit)
	if err != nil {
		log.Printf("Failed to load activity for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load activity",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       activity.Events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages(activity.Total, limit),
		"total_events": activity.Total,
	})
}

func totalPages(total int64, limit int) int {
	pages := (int(total) + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return pages
}
