package rating

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type ListRatingsLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// List ratings
func NewListRatingsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListRatingsLogic {
	return &ListRatingsLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ListRatings returns ratings newest first, filtered by user, chat, score
// and presence of feedback. Users only ever see their own ratings;
// administrators see everyone's unless they filter by user.
func (l *ListRatingsLogic) ListRatings(req *types.ListRatingsRequest) (*types.ListRatingsResponse, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}
	if req.Score != 0 {
		if err := checkScore(req.Score); err != nil {
			return nil, err
		}
	}

	filter := db.RatingFilter{
		UserID:       req.UserId,
		ChatID:       req.ChatId,
		Score:        req.Score,
		WithFeedback: req.WithFeedback,
	}
	if !p.IsAdmin {
		if req.UserId != "" && req.UserId != p.UserID {
			return nil, apperr.Forbidden("access denied")
		}
		filter.UserID = p.UserID
	}

	ratings, err := l.svcCtx.DB.ListRatings(l.ctx, filter)
	if err != nil {
		l.Errorf("Failed to list ratings: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := &types.ListRatingsResponse{Ratings: make([]types.Rating, len(ratings))}
	for i, r := range ratings {
		resp.Ratings[i] = ToRating(r)
	}
	return resp, nil
}
