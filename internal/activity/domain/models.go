// Package domain contains the activity-trail models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actions recorded by the platform.
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
	ActionJoin   = "Join"
	ActionFollow = "Follow"
)

// Target kinds.
const (
	TargetCommunity = "Community"
	TargetUser      = "User"
)

// Entry is one audit record of a user action. Writes are best-effort:
// a failed insert is logged and swallowed, never surfaced.
type Entry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null;index:ix_activity_target,priority:1" json:"target_type"`
	TargetID   snowflake.ID      `gorm:"not null;index:ix_activity_target,priority:2" json:"target_id"`
	Detail     string            `gorm:"type:text" json:"detail"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Entry) TableName() string { return "activity_logs" }
