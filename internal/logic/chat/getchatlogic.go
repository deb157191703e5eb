package chat

import (
	"context"

	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type GetChatLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetChatLogic {
	return &GetChatLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetChatLogic) GetChat(req *types.GetChatRequest) (*types.Chat, error) {
	c, err := ownedChat(l.ctx, l.svcCtx, req.ChatId)
	if err != nil {
		return nil, err
	}
	resp := ToChat(c)
	return &resp, nil
}
