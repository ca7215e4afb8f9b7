package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type inviteAuthorizedPersonRequest struct {
	Email string `json:"email"`
}

func (s *Server) InviteAuthorizedPerson(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req inviteAuthorizedPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.communitySvc.InviteAuthorizedPerson(c.Request.Context(), actorID(c), id, req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The code itself only travels by mail.
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"invite_id":   resp.Invite.ID,
		"email":       resp.Invite.Email,
		"otp_expires": resp.Invite.OTPExpires,
		"resent":      resp.Resent,
	}})
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (s *Server) VerifyAuthorizedOTP(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.communitySvc.VerifyAuthorizedOTP(c.Request.Context(), id, actorID(c), req.OTP)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAuthorizedPersons(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.communitySvc.ListAuthorizedPersons(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendEmailVerification(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.SendEmailVerification(c.Request.Context(), actorID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) VerifyDomainEmail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.communitySvc.VerifyDomainEmail(c.Request.Context(), actorID(c), id, req.OTP)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
