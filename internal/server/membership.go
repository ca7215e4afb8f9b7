package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) SubmitJoinRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.SubmitJoinRequest(c.Request.Context(), id, actorID(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
}

func (s *Server) ListJoinRequests(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.communitySvc.ListJoinRequests(c.Request.Context(), actorID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveJoinRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.ApproveJoinRequest(c.Request.Context(), actorID(c), id, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (s *Server) RejectJoinRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.RejectJoinRequest(c.Request.Context(), actorID(c), id, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (s *Server) ListMembers(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.communitySvc.ListMembers(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.RemoveMember(c.Request.Context(), actorID(c), id, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) FollowCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.Follow(c.Request.Context(), id, actorID(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "following"})
}

func (s *Server) UnfollowCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.Unfollow(c.Request.Context(), id, actorID(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unfollowed"})
}
