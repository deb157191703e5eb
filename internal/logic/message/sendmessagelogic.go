package message

import (
	"context"

	"github.com/sentryai/sentry/internal/conversation"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/logic/chat"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type SendMessageLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Send a message and wait for the whole answer
func NewSendMessageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendMessageLogic {
	return &SendMessageLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SendMessageLogic) SendMessage(req *types.SendMessageRequest) (*types.SendMessageResponse, error) {
	turnReq, err := newTurnRequest(l.ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := l.svcCtx.Orchestrator.Complete(l.ctx, turnReq)
	if err != nil {
		return nil, err
	}
	return &types.SendMessageResponse{
		UserTurn:      chat.ToMessage(res.UserTurn),
		AssistantTurn: chat.ToMessage(res.AssistantTurn),
	}, nil
}

func newTurnRequest(ctx context.Context, req *types.SendMessageRequest) (conversation.Request, error) {
	p, err := middleware.RequirePrincipal(ctx)
	if err != nil {
		return conversation.Request{}, err
	}
	return conversation.Request{
		ChatID:   req.ChatId,
		Content:  req.Content,
		Model:    req.Model,
		UserID:   p.UserID,
		UserName: p.Name,
		IsAdmin:  p.IsAdmin,
	}, nil
}
