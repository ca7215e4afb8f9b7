package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/internal/community/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, community *domain.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Community, error) {
	var community domain.Community
	err := r.db.WithContext(ctx).First(&community, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*domain.Community, error) {
	var community domain.Community
	err := r.db.WithContext(ctx).First(&community, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Community, error) {
	query := r.db.WithContext(ctx).Model(&domain.Community{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.MemberID != 0 {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&domain.Member{}).Select("community_id").Where("user_id = ?", filter.MemberID),
		)
	}
	if filter.Cursor != 0 {
		query = query.Where("id < ?", filter.Cursor)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var communities []*domain.Community
	if err := query.Order("id DESC").Limit(limit + 1).Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}

func (r *repository) Update(ctx context.Context, id snowflake.ID, update domain.CommunityUpdate) (*domain.Community, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Image != nil {
		fields["image"] = *update.Image
	}
	if update.Categories != nil {
		fields["categories"] = update.Categories
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Community{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Community{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		for _, model := range []any{
			&domain.Member{},
			&domain.Follower{},
			&domain.JoinRequest{},
			&domain.AuthorizedPerson{},
			&domain.Invite{},
		} {
			if err := tx.Where("community_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) CreateJoinRequest(ctx context.Context, request *domain.JoinRequest) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(request)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteJoinRequest(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&domain.JoinRequest{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) HasJoinRequest(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	return r.exists(ctx, &domain.JoinRequest{}, communityID, userID)
}

func (r *repository) ListJoinRequests(ctx context.Context, communityID snowflake.ID) ([]domain.JoinRequest, error) {
	var requests []domain.JoinRequest
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) AddMember(ctx context.Context, member *domain.Member) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("community_id = ? AND user_id = ?", member.CommunityID, member.UserID).
			Delete(&domain.JoinRequest{}).Error; err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(member)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		added = true

		return tx.Model(&domain.Community{}).
			Where("id = ?", member.CommunityID).
			UpdateColumn("members_count", gorm.Expr("members_count + 1")).Error
	})
	return added, err
}

func (r *repository) RemoveMember(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&domain.Member{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		// Floor at zero so a stray decrement can never drive the
		// counter negative.
		return tx.Model(&domain.Community{}).
			Where("id = ?", communityID).
			UpdateColumn("members_count",
				gorm.Expr("CASE WHEN members_count <= 0 THEN 0 ELSE members_count - 1 END")).Error
	})
	return removed, err
}

func (r *repository) IsMember(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	return r.exists(ctx, &domain.Member{}, communityID, userID)
}

func (r *repository) ListMembers(ctx context.Context, communityID snowflake.ID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) AddFollower(ctx context.Context, follower *domain.Follower) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(follower)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		added = true

		return tx.Model(&domain.Community{}).
			Where("id = ?", follower.CommunityID).
			UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error
	})
	return added, err
}

func (r *repository) RemoveFollower(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&domain.Follower{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		return tx.Model(&domain.Community{}).
			Where("id = ?", communityID).
			UpdateColumn("followers_count",
				gorm.Expr("CASE WHEN followers_count <= 0 THEN 0 ELSE followers_count - 1 END")).Error
	})
	return removed, err
}

func (r *repository) IsFollower(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	return r.exists(ctx, &domain.Follower{}, communityID, userID)
}

func (r *repository) ListFollowers(ctx context.Context, communityID snowflake.ID) ([]domain.Follower, error) {
	var followers []domain.Follower
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&followers).Error
	return followers, err
}

func (r *repository) IsAuthorized(ctx context.Context, communityID, userID snowflake.ID) (bool, error) {
	return r.exists(ctx, &domain.AuthorizedPerson{}, communityID, userID)
}

func (r *repository) ListAuthorizedPersons(ctx context.Context, communityID snowflake.ID) ([]domain.AuthorizedPerson, error) {
	var persons []domain.AuthorizedPerson
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&persons).Error
	return persons, err
}

func (r *repository) CreateInvite(ctx context.Context, invite *domain.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *repository) RefreshInvite(ctx context.Context, communityID, userID snowflake.ID, email, otp string, expires, invitedAt time.Time) (*domain.Invite, error) {
	var invite domain.Invite
	query := r.db.WithContext(ctx).Where("community_id = ?", communityID)
	if userID != 0 {
		// A bound invite follows the user, so a changed directory
		// address still refreshes the same row.
		query = query.Where("user_id = ? OR email = ?", userID, email)
	} else {
		query = query.Where("email = ?", email)
	}
	err := query.Order("invited_at DESC").First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"otp":         otp,
		"otp_expires": expires,
		"invited_at":  invitedAt,
	}
	if userID != 0 {
		updates["user_id"] = userID
		updates["email"] = email
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Invite{}).
		Where("id = ?", invite.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	invite.OTP = otp
	invite.OTPExpires = expires
	invite.InvitedAt = invitedAt
	if userID != 0 {
		invite.UserID = userID
		invite.Email = email
	}
	return &invite, nil
}

func (r *repository) FindInviteByOTP(ctx context.Context, communityID, userID snowflake.ID, otp string) (*domain.Invite, error) {
	var invite domain.Invite
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND otp = ? AND (user_id = ? OR user_id = 0)", communityID, otp, userID).
		Order("invited_at DESC").
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) ConfirmInvite(ctx context.Context, invite *domain.Invite, person *domain.AuthorizedPerson, threshold int) (*domain.Community, bool, error) {
	var (
		community domain.Community
		activated bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Deleting the invite first makes concurrent confirmations of
		// the same code mutually exclusive.
		result := tx.Delete(&domain.Invite{}, "id = ?", invite.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrInvalidOTP
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(person)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			return domain.ErrAlreadyAuthorized
		}

		if err := tx.Model(&domain.Community{}).
			Where("id = ?", invite.CommunityID).
			UpdateColumn("approval_count", gorm.Expr("approval_count + 1")).Error; err != nil {
			return err
		}

		flip := tx.Model(&domain.Community{}).
			Where("id = ? AND status = ? AND approval_count >= ?",
				invite.CommunityID, domain.StatusPending, threshold).
			Updates(map[string]any{"status": domain.StatusActive, "updated_at": time.Now().UTC()})
		if flip.Error != nil {
			return flip.Error
		}
		activated = flip.RowsAffected > 0

		return tx.First(&community, "id = ?", invite.CommunityID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &community, activated, nil
}

func (r *repository) SetEmailOTP(ctx context.Context, communityID snowflake.ID, otp string, expires time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Community{}).
		Where("id = ?", communityID).
		Updates(map[string]any{
			"email_otp":         otp,
			"email_otp_expires": expires,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) ConfirmEmailOTP(ctx context.Context, communityID snowflake.ID) (*domain.Community, bool, error) {
	var (
		community domain.Community
		activated bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Community{}).
			Where("id = ?", communityID).
			Updates(map[string]any{
				"email_otp":         nil,
				"email_otp_expires": nil,
				"is_email_verified": true,
				"updated_at":        time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		flip := tx.Model(&domain.Community{}).
			Where("id = ? AND status = ?", communityID, domain.StatusPending).
			Update("status", domain.StatusActive)
		if flip.Error != nil {
			return flip.Error
		}
		activated = flip.RowsAffected > 0

		return tx.First(&community, "id = ?", communityID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &community, activated, nil
}

func (r *repository) exists(ctx context.Context, model any, communityID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(model).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
