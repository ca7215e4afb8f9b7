package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	AddRelation(ctx context.Context, row UserCommunity) error
	RemoveRelation(ctx context.Context, userID, communityID snowflake.ID, relation string) error
	ListRelations(ctx context.Context, userID snowflake.ID, relation string) ([]snowflake.ID, error)
}
