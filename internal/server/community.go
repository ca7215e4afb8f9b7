package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	communitydomain "github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/pkg/db/pagination"
)

type createCommunityRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Categories  datatypes.JSON `json:"categories"`
	Type        string         `json:"type"`
	DomainEmail string         `json:"domain_email"`
}

func (s *Server) CreateCommunity(c *gin.Context) {
	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.communitySvc.Create(c.Request.Context(), communitydomain.CreateCommunityRequest{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
		Type:        communitydomain.Type(req.Type),
		CreatorID:   actorID(c),
		DomainEmail: req.DomainEmail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCommunityByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.communitySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommunities(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		Type   string `form:"type"`
		Member string `form:"member_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	memberID, err := parseOptionalSnowflakeID(query.Member)
	if err != nil {
		AbortWithError(c, newValidationError("member_id", "invalid_member_id", "invalid member_id"))
		return
	}

	req := communitydomain.ListCommunitiesRequest{
		Pagination: query.Pagination,
		Status:     communitydomain.Status(query.Status),
		Type:       communitydomain.Type(query.Type),
	}
	if memberID != nil {
		req.MemberID = *memberID
	}

	resp, err := s.communitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCommunityRequest struct {
	Description *string        `json:"description"`
	Image       *string        `json:"image"`
	Categories  datatypes.JSON `json:"categories"`
}

func (s *Server) UpdateCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.communitySvc.Update(c.Request.Context(), communitydomain.UpdateCommunityRequest{
		CommunityID: id,
		ActorID:     actorID(c),
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.Delete(c.Request.Context(), actorID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
