package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	UserID     snowflake.ID
	Action     string
	TargetType string
	Cursor     *Cursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}
