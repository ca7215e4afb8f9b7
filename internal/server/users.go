package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

type createUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Create(c.Request.Context(), userdomain.CreateUserRequest{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetUserByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.userSvc.FindByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserCommunities(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	relation := strings.TrimSpace(c.Query("relation"))
	if relation == "" {
		relation = userdomain.RelationJoined
	}
	if relation != userdomain.RelationJoined && relation != userdomain.RelationFollowing {
		AbortWithError(c, newValidationError("relation", "invalid_relation", "invalid relation"))
		return
	}

	ids, err := s.userSvc.ListCommunities(c.Request.Context(), id, relation)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"relation":      relation,
		"community_ids": ids,
	}})
}
