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

type UpdateRatingLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Update rating
func NewUpdateRatingLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateRatingLogic {
	return &UpdateRatingLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdateRating changes the score, the feedback or both. Sending an empty
// feedback clears it.
func (l *UpdateRatingLogic) UpdateRating(req *types.UpdateRatingRequest) (*types.Rating, error) {
	if req.Score == nil && req.Feedback == nil {
		return nil, apperr.Validation("score or feedback is required")
	}
	var arg db.UpdateRatingParams
	if req.Score != nil {
		if err := checkScore(*req.Score); err != nil {
			return nil, err
		}
		arg.Score = req.Score
	}
	if req.Feedback != nil {
		feedback, err := cleanFeedback(*req.Feedback)
		if err != nil {
			return nil, err
		}
		arg.Feedback = &feedback
	}

	if _, err := ownedRating(l.ctx, l.svcCtx, req.RatingId); err != nil {
		return nil, err
	}
	r, err := l.svcCtx.DB.UpdateRating(l.ctx, req.RatingId, arg)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("rating not found")
	}
	if err != nil {
		l.Errorf("Failed to update rating %s: %v", req.RatingId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := ToRating(r)
	return &resp, nil
}
