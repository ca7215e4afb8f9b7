package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	"github.com/pressroomhq/commune/internal/clock"
	"github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/internal/config"
	"github.com/pressroomhq/commune/internal/lock"
	"github.com/pressroomhq/commune/internal/observability/metrics"
	"github.com/pressroomhq/commune/internal/providers/email"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
	dbpkg "github.com/pressroomhq/commune/pkg/db"
	"github.com/pressroomhq/commune/pkg/db/pagination"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Users    userdomain.Directory
	Activity activitydomain.Recorder
	Mail     email.Provider
	Locker   *lock.Locker `optional:"true"`
	Policy   *config.PolicyHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	users    userdomain.Directory
	activity activitydomain.Recorder
	mail     email.Provider
	locker   *lock.Locker
	policy   *config.PolicyHolder
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("community"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		users:    p.Users,
		activity: p.Activity,
		mail:     p.Mail,
		locker:   p.Locker,
		policy:   p.Policy,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCommunityRequest) (*domain.Community, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Type != domain.TypeSingle && req.Type != domain.TypeMulti {
		return nil, domain.ErrInvalidType
	}
	if req.CreatorID == 0 {
		return nil, domain.ErrInvalidUser
	}

	domainEmail := strings.ToLower(strings.TrimSpace(req.DomainEmail))
	if domainEmail != "" && !strings.Contains(domainEmail, "@") {
		return nil, domain.ErrInvalidEmail
	}

	if _, err := s.users.FindByID(ctx, req.CreatorID); err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return nil, domain.ErrInvalidUser
		}
		return nil, err
	}

	community := &domain.Community{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
		Type:        req.Type,
		CreatorID:   req.CreatorID,
		Status:      domain.StatusPending,
		DomainEmail: domainEmail,
		CreatedAt:   s.clock.Now(),
		UpdatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, community); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	// The creator is the founding member.
	added, err := s.repo.AddMember(ctx, &domain.Member{
		ID:          s.genID.Generate(),
		CommunityID: community.ID,
		UserID:      req.CreatorID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if added {
		community.MembersCount = 1
	}

	if err := s.users.AddJoinedCommunity(ctx, req.CreatorID, community.ID); err != nil {
		s.log.Warn("failed to propagate joined community to directory",
			zap.String("community_id", community.ID.String()),
			zap.Error(err),
		)
	}

	s.activity.Record(ctx, req.CreatorID, activitydomain.ActionCreate,
		activitydomain.TargetCommunity, community.ID, fmt.Sprintf("created community %q", name))

	return community, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Community, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListCommunitiesRequest) (domain.ListCommunitiesResponse, error) {
	var cursor snowflake.ID
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListCommunitiesResponse{}, err
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil {
			return domain.ListCommunitiesResponse{}, err
		}
		cursor = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, domain.ListFilter{
		Status:   req.Status,
		Type:     req.Type,
		MemberID: req.MemberID,
		Cursor:   cursor,
		Limit:    pageSize,
	})
	if err != nil {
		return domain.ListCommunitiesResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Community) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	communities := make([]domain.Community, 0, len(items))
	for _, item := range items {
		communities = append(communities, *item)
	}
	return domain.ListCommunitiesResponse{Communities: communities, PageInfo: pageInfo}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCommunityRequest) (*domain.Community, error) {
	community, err := s.repo.GetByID(ctx, req.CommunityID)
	if err != nil {
		return nil, err
	}
	if community.CreatorID != req.ActorID {
		return nil, domain.ErrForbidden
	}

	updated, err := s.repo.Update(ctx, req.CommunityID, domain.CommunityUpdate{
		Description: req.Description,
		Image:       req.Image,
		Categories:  req.Categories,
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, req.ActorID, activitydomain.ActionUpdate,
		activitydomain.TargetCommunity, community.ID, "updated community profile")

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actorID, communityID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID != actorID {
		return domain.ErrForbidden
	}

	members, err := s.repo.ListMembers(ctx, communityID)
	if err != nil {
		return err
	}
	followers, err := s.repo.ListFollowers(ctx, communityID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, communityID); err != nil {
		return err
	}

	// Directory mirror cleanup is best-effort; the rows being gone is
	// the source of truth.
	for _, member := range members {
		if err := s.users.RemoveJoinedCommunity(ctx, member.UserID, communityID); err != nil {
			s.log.Warn("failed to remove joined community from directory",
				zap.String("user_id", member.UserID.String()), zap.Error(err))
		}
	}
	for _, follower := range followers {
		if err := s.users.RemoveFollowingCommunity(ctx, follower.UserID, communityID); err != nil {
			s.log.Warn("failed to remove following community from directory",
				zap.String("user_id", follower.UserID.String()), zap.Error(err))
		}
	}

	s.activity.Record(ctx, actorID, activitydomain.ActionDelete,
		activitydomain.TargetCommunity, communityID, fmt.Sprintf("deleted community %q", community.Name))

	return nil
}

func (s *Service) ListMembers(ctx context.Context, communityID snowflake.ID) ([]domain.Member, error) {
	if _, err := s.repo.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, communityID)
}

func (s *Service) ListJoinRequests(ctx context.Context, actorID, communityID snowflake.ID) ([]domain.JoinRequest, error) {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireModerator(ctx, community, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListJoinRequests(ctx, communityID)
}

func (s *Service) ListAuthorizedPersons(ctx context.Context, communityID snowflake.ID) ([]domain.AuthorizedPerson, error) {
	if _, err := s.repo.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	return s.repo.ListAuthorizedPersons(ctx, communityID)
}

// requireModerator passes for the creator and for authorized persons.
func (s *Service) requireModerator(ctx context.Context, community *domain.Community, actorID snowflake.ID) error {
	if actorID == community.CreatorID {
		return nil
	}
	authorized, err := s.repo.IsAuthorized(ctx, community.ID, actorID)
	if err != nil {
		return err
	}
	if !authorized {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) lockKey(communityID snowflake.ID) string {
	return fmt.Sprintf("commune:community:%s", communityID)
}

func (s *Service) withCommunityLock(ctx context.Context, communityID snowflake.ID, fn func(ctx context.Context) error) error {
	return s.locker.WithLock(ctx, s.lockKey(communityID), fn)
}
