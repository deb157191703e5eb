package rating

import (
	"context"

	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type GetRatingLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Get rating
func NewGetRatingLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetRatingLogic {
	return &GetRatingLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetRatingLogic) GetRating(req *types.GetRatingRequest) (*types.Rating, error) {
	r, err := ownedRating(l.ctx, l.svcCtx, req.RatingId)
	if err != nil {
		return nil, err
	}
	resp := ToRating(r)
	return &resp, nil
}
