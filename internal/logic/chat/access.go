package chat

import (
	"context"
	"errors"
	"time"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/history"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// DefaultChatName is the name of a chat until it is renamed or auto-titled.
const DefaultChatName = "Nova Conversa"

const maxChatNameRunes = 120

// ownedChat loads a chat the caller is allowed to act on.
func ownedChat(ctx context.Context, svcCtx *svc.ServiceContext, chatID string) (*db.Chat, error) {
	p, err := middleware.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if chatID == "" {
		return nil, apperr.Validation("chatId is required")
	}
	c, err := svcCtx.DB.GetChat(ctx, chatID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	if !p.CanAccess(c.UserID) {
		return nil, apperr.Forbidden("access denied")
	}
	return c, nil
}

func formatMicros(us int64) string {
	return time.UnixMicro(us).UTC().Format(time.RFC3339)
}

func ToChat(c *db.Chat) types.Chat {
	return types.Chat{
		Id:         c.ID,
		UserId:     c.UserID,
		Name:       c.Name,
		NameSource: c.NameSource,
		CreatedAt:  formatMicros(c.CreatedAt),
		UpdatedAt:  formatMicros(c.UpdatedAt),
	}
}

func ToMessage(t history.Turn) types.ChatMessage {
	return types.ChatMessage{
		Id:        t.ID,
		Role:      t.Role,
		Content:   t.Content,
		Model:     t.Model,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
