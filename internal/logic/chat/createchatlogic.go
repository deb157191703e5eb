package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type CreateChatLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Create new chat
func NewCreateChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CreateChatLogic {
	return &CreateChatLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// CreateChat creates a chat for the caller. A chat created with an explicit
// name is never auto-titled.
func (l *CreateChatLogic) CreateChat(req *types.CreateChatRequest) (*types.Chat, error) {
	p, err := middleware.RequirePrincipal(l.ctx)
	if err != nil {
		return nil, err
	}

	params := db.CreateChatParams{UserID: p.UserID, Name: DefaultChatName, NameSource: db.NameSourceDefault}
	if name := strings.TrimSpace(req.Name); name != "" && name != DefaultChatName {
		if utf8.RuneCountInString(name) > maxChatNameRunes {
			return nil, apperr.Validation("name exceeds %d characters", maxChatNameRunes)
		}
		params.Name, params.NameSource = name, db.NameSourceUser
	}

	c, err := l.svcCtx.DB.CreateChat(l.ctx, params)
	if err != nil {
		l.Errorf("Failed to create chat: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := ToChat(c)
	return &resp, nil
}
