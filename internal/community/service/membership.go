package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	"github.com/pressroomhq/commune/internal/community/domain"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

func (s *Service) SubmitJoinRequest(ctx context.Context, communityID, userID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return domain.ErrInvalidUser
		}
		return err
	}

	isMember, err := s.repo.IsMember(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if isMember {
		return domain.ErrAlreadyMember
	}

	created, err := s.repo.CreateJoinRequest(ctx, &domain.JoinRequest{
		ID:          s.genID.Generate(),
		CommunityID: communityID,
		UserID:      userID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrDuplicateRequest
	}

	s.metrics.JoinRequest("submitted")
	s.activity.Record(ctx, userID, activitydomain.ActionJoin,
		activitydomain.TargetCommunity, communityID, community.Name)
	return nil
}

// ApproveJoinRequest adds the requester to the member set. The member
// add is idempotent: approving a user who is already a member removes
// any stray request row and succeeds without touching the count.
func (s *Service) ApproveJoinRequest(ctx context.Context, actorID, communityID, userID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if err := s.requireModerator(ctx, community, actorID); err != nil {
		return err
	}

	var added bool
	err = s.withCommunityLock(ctx, communityID, func(ctx context.Context) error {
		added, err = s.repo.AddMember(ctx, &domain.Member{
			ID:          s.genID.Generate(),
			CommunityID: communityID,
			UserID:      userID,
			CreatedAt:   s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	if err := s.users.AddJoinedCommunity(ctx, userID, communityID); err != nil {
		s.log.Warn("failed to propagate joined community to directory",
			zap.String("community_id", communityID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	s.metrics.JoinRequest("approved")
	return nil
}

// RejectJoinRequest discards any pending request for the user. Rejecting
// when no request exists, including after an approval already consumed
// it, succeeds without effect.
func (s *Service) RejectJoinRequest(ctx context.Context, actorID, communityID, userID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if err := s.requireModerator(ctx, community, actorID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteJoinRequest(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if deleted {
		s.metrics.JoinRequest("rejected")
	}
	return nil
}

// RemoveMember is allowed for moderators and for members removing
// themselves.
func (s *Service) RemoveMember(ctx context.Context, actorID, communityID, userID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if actorID != userID {
		if err := s.requireModerator(ctx, community, actorID); err != nil {
			return err
		}
	}

	var removed bool
	err = s.withCommunityLock(ctx, communityID, func(ctx context.Context) error {
		removed, err = s.repo.RemoveMember(ctx, communityID, userID)
		return err
	})
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrNotMember
	}

	if err := s.users.RemoveJoinedCommunity(ctx, userID, communityID); err != nil {
		s.log.Warn("failed to remove joined community from directory",
			zap.String("community_id", communityID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) Follow(ctx context.Context, communityID, userID snowflake.ID) error {
	if _, err := s.repo.GetByID(ctx, communityID); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return domain.ErrInvalidUser
		}
		return err
	}

	added, err := s.repo.AddFollower(ctx, &domain.Follower{
		ID:          s.genID.Generate(),
		CommunityID: communityID,
		UserID:      userID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return err
	}
	if !added {
		return domain.ErrAlreadyFollowing
	}

	if err := s.users.AddFollowingCommunity(ctx, userID, communityID); err != nil {
		s.log.Warn("failed to propagate following community to directory",
			zap.String("community_id", communityID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	s.activity.Record(ctx, userID, activitydomain.ActionFollow,
		activitydomain.TargetCommunity, communityID, "followed community")
	return nil
}

// Unfollow succeeds even when the user was not following; the follower
// row and the directory mirror are simply confirmed gone.
func (s *Service) Unfollow(ctx context.Context, communityID, userID snowflake.ID) error {
	if _, err := s.repo.GetByID(ctx, communityID); err != nil {
		return err
	}

	if _, err := s.repo.RemoveFollower(ctx, communityID, userID); err != nil {
		return err
	}

	if err := s.users.RemoveFollowingCommunity(ctx, userID, communityID); err != nil {
		s.log.Warn("failed to remove following community from directory",
			zap.String("community_id", communityID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
	return nil
}
