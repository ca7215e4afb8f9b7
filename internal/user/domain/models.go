// Package domain contains the user-directory models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a directory entry. Authentication lives elsewhere; the
// community core only resolves identities and mirrors memberships.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	FullName  string       `gorm:"type:text;not null" json:"full_name"`
	Email     string       `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

const (
	RelationJoined    = "joined"
	RelationFollowing = "following"
)

// UserCommunity mirrors a user's joined/following sets. Rows are unique
// per (user, community, relation) so repeated propagation is a no-op.
type UserCommunity struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_community_relation,priority:1" json:"user_id"`
	CommunityID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_community_relation,priority:2" json:"community_id"`
	Relation    string       `gorm:"type:text;not null;uniqueIndex:ux_user_community_relation,priority:3" json:"relation"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserCommunity) TableName() string { return "user_communities" }
