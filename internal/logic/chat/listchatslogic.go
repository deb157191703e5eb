package chat

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type ListChatsLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// List user chats
func NewListChatsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListChatsLogic {
	return &ListChatsLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ListChats returns the caller's chats, most recently active first.
// Administrators may list another user's chats.
func (l *ListChatsLogic) ListChats(req *types.ListChatsRequest) (*types.ListChatsResponse, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}
	userID := p.UserID
	if req.UserId != "" {
		if !p.CanAccess(req.UserId) {
			return nil, apperr.Forbidden("access denied")
		}
		userID = req.UserId
	}

	chats, err := l.svcCtx.DB.ListChats(l.ctx, userID)
	if err != nil {
		l.Errorf("Failed to list chats: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := &types.ListChatsResponse{Chats: make([]types.Chat, len(chats))}
	for i, c := range chats {
		resp.Chats[i] = ToChat(c)
	}
	return resp, nil
}
