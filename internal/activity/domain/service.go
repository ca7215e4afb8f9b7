package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/pkg/db/pagination"
)

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// Recorder appends and lists activity entries.
type Recorder interface {
	// Record is fire-and-forget: it never returns an error to the caller.
	Record(ctx context.Context, userID snowflake.ID, action, targetType string, targetID snowflake.ID, detail string)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type ListRequest struct {
	pagination.Pagination
	UserID     snowflake.ID
	Action     string
	TargetType string
}

type ListResponse struct {
	Entries  []Entry              `json:"entries"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}
