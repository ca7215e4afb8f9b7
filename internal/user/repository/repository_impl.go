package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) AddRelation(ctx context.Context, row domain.UserCommunity) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (r *repository) RemoveRelation(ctx context.Context, userID, communityID snowflake.ID, relation string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ? AND relation = ?", userID, communityID, relation).
		Delete(&domain.UserCommunity{}).Error
}

func (r *repository) ListRelations(ctx context.Context, userID snowflake.ID, relation string) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.UserCommunity{}).
		Where("user_id = ? AND relation = ?", userID, relation).
		Order("created_at ASC").
		Pluck("community_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
