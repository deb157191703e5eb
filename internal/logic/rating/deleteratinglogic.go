package rating

import (
	"context"
	"errors"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type DeleteRatingLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Delete rating
func NewDeleteRatingLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DeleteRatingLogic {
	return &DeleteRatingLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *DeleteRatingLogic) DeleteRating(req *types.DeleteRatingRequest) (*types.DeleteResponse, error) {
	if _, err := ownedRating(l.ctx, l.svcCtx, req.RatingId); err != nil {
		return nil, err
	}
	err := l.svcCtx.DB.DeleteRating(l.ctx, req.RatingId)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("rating not found")
	}
	if err != nil {
		l.Errorf("Failed to delete rating %s: %v", req.RatingId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	return &types.DeleteResponse{Success: true}, nil
}
