package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/internal/activity/domain"
	"github.com/pressroomhq/commune/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewRecorder(p Params) domain.Recorder {
	return &Service{
		log:   p.Log.Named("activity.recorder"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, userID snowflake.ID, action, targetType string, targetID snowflake.ID, detail string) {
	action = strings.TrimSpace(action)
	if action == "" || userID == 0 {
		return
	}
	if strings.TrimSpace(targetType) == "" {
		targetType = "unknown"
	}

	entry := &domain.Entry{
		ID:         s.genID.Generate(),
		UserID:     userID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Warn("failed to write activity entry",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *domain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, domain.ListFilter{
		UserID:     req.UserID,
		Action:     req.Action,
		TargetType: req.TargetType,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Entry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, *item)
	}

	return domain.ListResponse{Entries: entries, PageInfo: pageInfo}, nil
}
