package chat

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type ListMessagesLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Merged chat history
func NewListMessagesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListMessagesLogic {
	return &ListMessagesLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ListMessages returns the chat's user and assistant turns interleaved in
// time order. Without a limit the whole history is returned.
func (l *ListMessagesLogic) ListMessages(req *types.ListMessagesRequest) (*types.ListMessagesResponse, error) {
	if req.Limit < 0 {
		return nil, apperr.Validation("limit must not be negative")
	}
	if _, err := ownedChat(l.ctx, l.svcCtx, req.ChatId); err != nil {
		return nil, err
	}

	turns, err := l.svcCtx.History.GetWindow(l.ctx, req.ChatId, req.Limit)
	if err != nil {
		l.Errorf("Failed to load messages for chat %s: %v", req.ChatId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := &types.ListMessagesResponse{Messages: make([]types.ChatMessage, len(turns))}
	for i, t := range turns {
		resp.Messages[i] = ToMessage(t)
	}
	return resp, nil
}
