package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	activityrepo "github.com/pressroomhq/commune/internal/activity/repository"
	activityservice "github.com/pressroomhq/commune/internal/activity/service"
	"github.com/pressroomhq/commune/internal/clock"
	"github.com/pressroomhq/commune/internal/community/domain"
	communityrepo "github.com/pressroomhq/commune/internal/community/repository"
	"github.com/pressroomhq/commune/internal/config"
	"github.com/pressroomhq/commune/internal/providers/email"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
	userrepo "github.com/pressroomhq/commune/internal/user/repository"
	userservice "github.com/pressroomhq/commune/internal/user/service"
	dbpkg "github.com/pressroomhq/commune/pkg/db"
	"github.com/pressroomhq/commune/pkg/db/pagination"
)

type fixture struct {
	svc   domain.Service
	repo  domain.Repository
	users userdomain.Directory
	clock *clock.FakeClock
	db    *gorm.DB
	genID *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Community{},
		&domain.Member{},
		&domain.Follower{},
		&domain.JoinRequest{},
		&domain.AuthorizedPerson{},
		&domain.Invite{},
		&userdomain.User{},
		&userdomain.UserCommunity{},
		&activitydomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	users := userservice.NewDirectory(userrepo.NewRepository(conn), node)
	recorder := activityservice.NewRecorder(activityservice.Params{
		Log:   log,
		GenID: node,
		Repo:  activityrepo.NewRepository(conn),
	})
	repo := communityrepo.NewRepository(conn)

	svc := NewService(Params{
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     repo,
		Users:    users,
		Activity: recorder,
		Mail:     &email.NoOpProvider{},
		Policy:   config.NewStaticPolicyHolder(config.DefaultCommunityPolicy()),
	})

	return &fixture{
		svc:   svc,
		repo:  repo,
		users: users,
		clock: fake,
		db:    conn,
		genID: node,
	}
}

func (f *fixture) createUser(t *testing.T, name, mail string) *userdomain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), userdomain.CreateUserRequest{
		FullName: name,
		Email:    mail,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) createCommunity(t *testing.T, creatorID snowflake.ID, typ domain.Type, name string) *domain.Community {
	t.Helper()
	community, err := f.svc.Create(context.Background(), domain.CreateCommunityRequest{
		Name:        name,
		Type:        typ,
		CreatorID:   creatorID,
		DomainEmail: "newsroom@example.org",
	})
	require.NoError(t, err)
	return community
}

func (f *fixture) rowCount(t *testing.T, model any, communityID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Where("community_id = ?", communityID).Count(&count).Error)
	return count
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *domain.Community {
	t.Helper()
	community, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return community
}

func TestCreateCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")

	community, err := f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name:      "Harbor City Desk",
		Type:      domain.TypeMulti,
		CreatorID: creator.ID,
	})
	require.NoError(t, err)

	if community.Status != domain.StatusPending {
		t.Fatalf("status = %s, want Pending", community.Status)
	}
	if community.Slug != "harbor-city-desk" {
		t.Fatalf("slug = %s", community.Slug)
	}

	stored := f.reload(t, community.ID)
	if stored.MembersCount != 1 {
		t.Fatalf("members_count = %d, want 1", stored.MembersCount)
	}
	if got := f.rowCount(t, &domain.Member{}, community.ID); got != 1 {
		t.Fatalf("member rows = %d, want 1", got)
	}

	joined, err := f.users.ListCommunities(ctx, creator.ID, userdomain.RelationJoined)
	require.NoError(t, err)
	require.Equal(t, []snowflake.ID{community.ID}, joined)
}

func TestCreateCommunityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")

	_, err := f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name: "  ", Type: domain.TypeMulti, CreatorID: creator.ID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name: "City Desk", Type: domain.Type("Triple"), CreatorID: creator.ID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name: "City Desk", Type: domain.TypeMulti, CreatorID: f.genID.Generate(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestCreateCommunityDuplicateName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	_, err := f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name: "Harbor City Desk", Type: domain.TypeMulti, CreatorID: creator.ID,
	})
	require.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestUpdateCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	outsider := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	description := "Local accountability reporting."
	_, err := f.svc.Update(ctx, domain.UpdateCommunityRequest{
		CommunityID: community.ID,
		ActorID:     outsider.ID,
		Description: &description,
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.svc.Update(ctx, domain.UpdateCommunityRequest{
		CommunityID: community.ID,
		ActorID:     creator.ID,
		Description: &description,
	})
	require.NoError(t, err)
	require.Equal(t, description, updated.Description)
}

func TestDeleteCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	member := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	require.NoError(t, f.svc.SubmitJoinRequest(ctx, community.ID, member.ID))
	require.NoError(t, f.svc.ApproveJoinRequest(ctx, creator.ID, community.ID, member.ID))

	require.ErrorIs(t, f.svc.Delete(ctx, member.ID, community.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, creator.ID, community.ID))

	_, err := f.svc.GetByID(ctx, community.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, f.rowCount(t, &domain.Member{}, community.ID))

	joined, err := f.users.ListCommunities(ctx, member.ID, userdomain.RelationJoined)
	require.NoError(t, err)
	require.Empty(t, joined)
}

func TestListCommunities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")

	first := f.createCommunity(t, creator.ID, domain.TypeMulti, "Alpha Desk")
	second := f.createCommunity(t, creator.ID, domain.TypeMulti, "Beta Desk")
	third := f.createCommunity(t, creator.ID, domain.TypeMulti, "Gamma Desk")

	page, err := f.svc.List(ctx, domain.ListCommunitiesRequest{})
	require.NoError(t, err)
	require.Len(t, page.Communities, 3)
	// Newest first.
	require.Equal(t, third.ID, page.Communities[0].ID)
	require.Equal(t, second.ID, page.Communities[1].ID)

	small, err := f.svc.List(ctx, domain.ListCommunitiesRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, small.Communities, 2)
	require.True(t, small.PageInfo.HasMore)

	rest, err := f.svc.List(ctx, domain.ListCommunitiesRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: small.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, rest.Communities, 1)
	require.Equal(t, first.ID, rest.Communities[0].ID)
	require.False(t, rest.PageInfo.HasMore)

	filtered, err := f.svc.List(ctx, domain.ListCommunitiesRequest{
		Status: domain.StatusActive,
	})
	require.NoError(t, err)
	require.Empty(t, filtered.Communities)
}

func TestListCommunitiesRejectsBadToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), domain.ListCommunitiesRequest{
		Pagination: pagination.Pagination{PageSize: 10, PageToken: "not-base64!!"},
	})
	if err == nil {
		t.Fatal("expected error for malformed page token")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}
