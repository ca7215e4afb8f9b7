// Package domain contains the community models and lifecycle contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Type distinguishes the two activation paths: a Single community is
// activated by its creator verifying a domain email; a Multi community
// needs confirmed authorization approvals.
type Type string

const (
	TypeSingle Type = "Single"
	TypeMulti  Type = "Multi"
)

// Status is the community lifecycle state. Pending→Active is the only
// transition this core performs; Hidden and Dissolved are set by
// moderation tooling outside it.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusHidden    Status = "Hidden"
	StatusDissolved Status = "Dissolved"
)

// Community is the aggregate root. Membership, follower, join-request,
// authorized-person, and invitation sets live in their own uniquely
// indexed tables so "at most once" holds structurally; the counters on
// this row are maintained with atomic increments in the same
// transaction as the set mutation.
type Community struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:text;not null;uniqueIndex:ux_communities_name" json:"name"`
	Slug        string         `gorm:"type:text;not null" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Image       string         `gorm:"type:text" json:"image"`
	Categories  datatypes.JSON `gorm:"type:jsonb" json:"categories"`
	Type        Type           `gorm:"type:text;not null" json:"type"`
	CreatorID   snowflake.ID   `gorm:"not null;index" json:"creator_id"`
	Status      Status         `gorm:"type:text;not null;index" json:"status"`

	MembersCount   int `gorm:"not null;default:0" json:"members_count"`
	FollowersCount int `gorm:"not null;default:0" json:"followers_count"`

	// ApprovalCount only ever increases: it counts successful OTP
	// confirmations, not the current size of the authorized set.
	ApprovalCount int `gorm:"not null;default:0" json:"approval_count"`

	// Single-creator email-verification channel.
	DomainEmail     string     `gorm:"type:text" json:"domain_email"`
	EmailOTP        *string    `gorm:"type:text" json:"-"`
	EmailOTPExpires *time.Time `json:"-"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"is_email_verified"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Community) TableName() string { return "communities" }

// Member is a row in the membership set.
type Member struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunityID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_member,priority:1" json:"community_id"`
	UserID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_member,priority:2" json:"user_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Member) TableName() string { return "community_members" }

// Follower is a row in the follower set. Following is disjoint from
// membership and has no approval step.
type Follower struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunityID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_follower,priority:1" json:"community_id"`
	UserID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_follower,priority:2" json:"user_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Follower) TableName() string { return "community_followers" }

// JoinRequest is a pending membership application. A user id is never
// in both community_members and community_join_requests: approval
// removes the request row in the same transaction that adds the member.
type JoinRequest struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunityID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_join_request,priority:1" json:"community_id"`
	UserID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_join_request,priority:2" json:"user_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JoinRequest) TableName() string { return "community_join_requests" }

// AuthorizedPerson grants posting/moderation rights beyond membership.
type AuthorizedPerson struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunityID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_authorized,priority:1" json:"community_id"`
	UserID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_authorized,priority:2" json:"user_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuthorizedPerson) TableName() string { return "community_authorized_persons" }

// Invite is a pending authorization invitation. UserID is zero for
// invitees who are not registered in the directory; such an invite is
// claimable by whoever presents the correct code. Expired invites are
// not purged, they just fail verification.
type Invite struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunityID snowflake.ID `gorm:"not null;index" json:"community_id"`
	UserID      snowflake.ID `gorm:"index" json:"user_id"`
	Email       string       `gorm:"type:text;not null" json:"email"`
	OTP         string       `gorm:"type:text;not null" json:"-"`
	OTPExpires  time.Time    `gorm:"not null" json:"otp_expires"`
	InvitedAt   time.Time    `gorm:"not null" json:"invited_at"`
}

func (Invite) TableName() string { return "community_invites" }
