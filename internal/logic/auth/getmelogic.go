package auth

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

type GetMeLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetMeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetMeLogic {
	return &GetMeLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// GetMe returns the stored account of the caller. A token whose account was
// removed is rejected.
func (l *GetMeLogic) GetMe() (*types.UserInfo, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}
	user, err := l.svcCtx.DB.GetUser(l.ctx, p.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "account no longer exists")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	info := UserInfo(user)
	return &info, nil
}
