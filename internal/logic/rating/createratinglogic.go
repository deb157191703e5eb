package rating

import (
	"context"
	"errors"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type CreateRatingLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Rate a chat
func NewCreateRatingLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CreateRatingLogic {
	return &CreateRatingLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// CreateRating records a score for a chat. The rating belongs to the chat's
// owner, so an administrator rating someone else's chat rates it on their
// behalf. A chat holds at most one rating.
func (l *CreateRatingLogic) CreateRating(req *types.CreateRatingRequest) (*types.Rating, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}
	if req.ChatId == "" {
		return nil, apperr.Validation("chatId is required")
	}
	if err := checkScore(req.Score); err != nil {
		return nil, err
	}
	feedback, err := cleanFeedback(req.Feedback)
	if err != nil {
		return nil, err
	}

	chat, err := l.svcCtx.DB.GetChat(l.ctx, req.ChatId)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	if !p.CanAccess(chat.UserID) {
		return nil, apperr.Forbidden("access denied")
	}

	r, err := l.svcCtx.DB.CreateRating(l.ctx, db.CreateRatingParams{
		UserID:   chat.UserID,
		ChatID:   chat.ID,
		Score:    req.Score,
		Feedback: feedback,
	})
	if errors.Is(err, db.ErrAlreadyRated) {
		return nil, apperr.Validation("chat already rated")
	}
	if err != nil {
		l.Errorf("Failed to rate chat %s: %v", chat.ID, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := ToRating(r)
	return &resp, nil
}
