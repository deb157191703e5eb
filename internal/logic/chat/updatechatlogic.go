package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type UpdateChatLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Rename chat
func NewUpdateChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateChatLogic {
	return &UpdateChatLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdateChat renames a chat. An explicit rename wins over any automatic
// title still in flight.
func (l *UpdateChatLogic) UpdateChat(req *types.UpdateChatRequest) (*types.Chat, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > maxChatNameRunes {
		return nil, apperr.Validation("name exceeds %d characters", maxChatNameRunes)
	}
	if _, err := ownedChat(l.ctx, l.svcCtx, req.ChatId); err != nil {
		return nil, err
	}

	c, err := l.svcCtx.DB.RenameChat(l.ctx, req.ChatId, name)
	if err != nil {
		l.Errorf("Failed to rename chat %s: %v", req.ChatId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := ToChat(c)
	return &resp, nil
}
