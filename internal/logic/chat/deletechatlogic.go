package chat

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type DeleteChatLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewDeleteChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DeleteChatLogic {
	return &DeleteChatLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *DeleteChatLogic) DeleteChat(req *types.DeleteChatRequest) (*types.DeleteResponse, error) {
	if _, err := ownedChat(l.ctx, l.svcCtx, req.ChatId); err != nil {
		return nil, err
	}
	if err := l.svcCtx.DB.DeleteChat(l.ctx, req.ChatId); err != nil {
		l.Errorf("Failed to delete chat %s: %v", req.ChatId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	l.Infof("Deleted chat %s", req.ChatId)
	return &types.DeleteResponse{Success: true}, nil
}
