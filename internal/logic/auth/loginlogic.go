package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

var errBadCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")

type LoginLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewLoginLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LoginLogic {
	return &LoginLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *LoginLogic) Login(req *types.LoginRequest) (*types.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := l.svcCtx.DB.GetUserByEmail(l.ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		l.Debugf("Failed login for %s", user.ID)
		return nil, errBadCredentials
	}
	return issue(l.svcCtx, user)
}
