package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/pkg/db/pagination"
	"gorm.io/datatypes"
)

var (
	ErrNotFound          = errors.New("community_not_found")
	ErrInviteNotFound    = errors.New("invite_not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidName       = errors.New("invalid_community_name")
	ErrInvalidType       = errors.New("invalid_community_type")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidUser       = errors.New("invalid_user")
	ErrNameTaken         = errors.New("community_name_taken")
	ErrAlreadyMember     = errors.New("already_member")
	ErrAlreadyFollowing  = errors.New("already_following")
	ErrAlreadyAuthorized = errors.New("already_authorized")
	ErrDuplicateRequest  = errors.New("join_request_already_pending")
	ErrNotMember         = errors.New("not_a_member")
	ErrNotFollowing      = errors.New("not_following")
	ErrInvalidOTP        = errors.New("invalid_otp")
	ErrOTPExpired        = errors.New("otp_expired")
	ErrEmailNotSet       = errors.New("domain_email_not_set")
	ErrWrongChannel      = errors.New("wrong_verification_channel")
)

type CreateCommunityRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Categories  datatypes.JSON `json:"categories"`
	Type        Type           `json:"type" binding:"required"`
	CreatorID   snowflake.ID   `json:"-"`
	DomainEmail string         `json:"domain_email"`
}

type UpdateCommunityRequest struct {
	CommunityID snowflake.ID   `json:"-"`
	ActorID     snowflake.ID   `json:"-"`
	Description *string        `json:"description"`
	Image       *string        `json:"image"`
	Categories  datatypes.JSON `json:"categories"`
}

type ListCommunitiesRequest struct {
	pagination.Pagination
	Status   Status       `form:"status"`
	Type     Type         `form:"type"`
	MemberID snowflake.ID `form:"-"`
}

type ListCommunitiesResponse struct {
	Communities []Community          `json:"communities"`
	PageInfo    *pagination.PageInfo `json:"page_info"`
}

// InviteResult reports what happened to an authorization invitation.
// Resent is true when an invite for the same invitee already existed
// and its code and expiry were refreshed in place.
type InviteResult struct {
	Invite *Invite `json:"invite"`
	Resent bool    `json:"resent"`
}

// VerifyResult reports the state reached after a successful OTP
// confirmation.
type VerifyResult struct {
	Community     *Community `json:"community"`
	ApprovalCount int        `json:"approval_count"`
	Activated     bool       `json:"activated"`
}

// Service is the community lifecycle core: creation and discovery,
// the membership and follower sets, and the two activation channels.
type Service interface {
	Create(ctx context.Context, req CreateCommunityRequest) (*Community, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Community, error)
	List(ctx context.Context, req ListCommunitiesRequest) (ListCommunitiesResponse, error)
	Update(ctx context.Context, req UpdateCommunityRequest) (*Community, error)
	Delete(ctx context.Context, actorID, communityID snowflake.ID) error

	SubmitJoinRequest(ctx context.Context, communityID, userID snowflake.ID) error
	ApproveJoinRequest(ctx context.Context, actorID, communityID, userID snowflake.ID) error
	RejectJoinRequest(ctx context.Context, actorID, communityID, userID snowflake.ID) error
	RemoveMember(ctx context.Context, actorID, communityID, userID snowflake.ID) error
	Follow(ctx context.Context, communityID, userID snowflake.ID) error
	Unfollow(ctx context.Context, communityID, userID snowflake.ID) error

	ListMembers(ctx context.Context, communityID snowflake.ID) ([]Member, error)
	ListJoinRequests(ctx context.Context, actorID, communityID snowflake.ID) ([]JoinRequest, error)
	ListAuthorizedPersons(ctx context.Context, communityID snowflake.ID) ([]AuthorizedPerson, error)

	InviteAuthorizedPerson(ctx context.Context, actorID, communityID snowflake.ID, email string) (*InviteResult, error)
	VerifyAuthorizedOTP(ctx context.Context, communityID, userID snowflake.ID, otp string) (*VerifyResult, error)
	SendEmailVerification(ctx context.Context, actorID, communityID snowflake.ID) error
	VerifyDomainEmail(ctx context.Context, actorID, communityID snowflake.ID, otp string) (*VerifyResult, error)
}
