package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound     = errors.New("user_not_found")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidName  = errors.New("invalid_name")
	ErrEmailTaken   = errors.New("email_taken")
)

// Directory is the lookup-and-propagation contract the community core
// depends on. Set operations are idempotent.
type Directory interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	AddJoinedCommunity(ctx context.Context, userID, communityID snowflake.ID) error
	RemoveJoinedCommunity(ctx context.Context, userID, communityID snowflake.ID) error
	AddFollowingCommunity(ctx context.Context, userID, communityID snowflake.ID) error
	RemoveFollowingCommunity(ctx context.Context, userID, communityID snowflake.ID) error

	ListCommunities(ctx context.Context, userID snowflake.ID, relation string) ([]snowflake.ID, error)
}

type CreateUserRequest struct {
	FullName string
	Email    string
}
