package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type RegisterLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRegisterLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RegisterLogic {
	return &RegisterLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Register creates an account and signs the caller in. The first account
// created on an empty database is an administrator.
func (l *RegisterLogic) Register(req *types.RegisterRequest) (*types.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		return nil, apperr.Validation("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	count, err := l.svcCtx.DB.CountUsers(l.ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}

	user, err := l.svcCtx.DB.CreateUser(l.ctx, db.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      count == 0,
	})
	if errors.Is(err, db.ErrEmailTaken) {
		return nil, apperr.Validation("email already registered")
	}
	if err != nil {
		l.Errorf("Failed to create user: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}

	l.Infof("Registered user %s", user.ID)
	return issue(l.svcCtx, user)
}
