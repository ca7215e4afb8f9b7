package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	dbpkg "github.com/pressroomhq/commune/pkg/db"

	"github.com/pressroomhq/commune/internal/user/domain"
)

type directory struct {
	repo  domain.Repository
	genID *snowflake.Node
}

func NewDirectory(repo domain.Repository, genID *snowflake.Node) domain.Directory {
	return &directory{repo: repo, genID: genID}
}

func (d *directory) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	user := &domain.User{
		ID:        d.genID.Generate(),
		FullName:  name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.repo.Create(ctx, user); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (d *directory) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return d.repo.GetByID(ctx, id)
}

func (d *directory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (d *directory) AddJoinedCommunity(ctx context.Context, userID, communityID snowflake.ID) error {
	return d.addRelation(ctx, userID, communityID, domain.RelationJoined)
}

func (d *directory) RemoveJoinedCommunity(ctx context.Context, userID, communityID snowflake.ID) error {
	return d.repo.RemoveRelation(ctx, userID, communityID, domain.RelationJoined)
}

func (d *directory) AddFollowingCommunity(ctx context.Context, userID, communityID snowflake.ID) error {
	return d.addRelation(ctx, userID, communityID, domain.RelationFollowing)
}

func (d *directory) RemoveFollowingCommunity(ctx context.Context, userID, communityID snowflake.ID) error {
	return d.repo.RemoveRelation(ctx, userID, communityID, domain.RelationFollowing)
}

func (d *directory) ListCommunities(ctx context.Context, userID snowflake.ID, relation string) ([]snowflake.ID, error) {
	return d.repo.ListRelations(ctx, userID, relation)
}

func (d *directory) addRelation(ctx context.Context, userID, communityID snowflake.ID, relation string) error {
	return d.repo.AddRelation(ctx, domain.UserCommunity{
		ID:          d.genID.Generate(),
		UserID:      userID,
		CommunityID: communityID,
		Relation:    relation,
		CreatedAt:   time.Now().UTC(),
	})
}
