package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	"github.com/pressroomhq/commune/pkg/db/pagination"
)

func (s *Server) ListActivity(c *gin.Context) {
	var query struct {
		pagination.Pagination
		UserID     string `form:"user_id"`
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseOptionalSnowflakeID(query.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}

	req := activitydomain.ListRequest{
		Pagination: query.Pagination,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
	}
	if userID != nil {
		req.UserID = *userID
	}

	resp, err := s.activitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
