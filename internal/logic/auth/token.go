package auth

import (
	"time"

	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// minPasswordLen and maxPasswordLen bound passwords; bcrypt ignores input
// past 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

func issue(svcCtx *svc.ServiceContext, u *db.User) (*types.AuthResponse, error) {
	ttl := time.Duration(svcCtx.Config.Auth.AccessExpire) * time.Second
	token, expires, err := middleware.IssueToken(svcCtx.Config.Auth.AccessSecret, ttl, middleware.Principal{
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &types.AuthResponse{
		Token:     token,
		ExpiresAt: expires.UnixMilli(),
		User:      UserInfo(u),
	}, nil
}

func UserInfo(u *db.User) types.UserInfo {
	return types.UserInfo{
		Id:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: time.UnixMicro(u.CreatedAt).UTC().Format(time.RFC3339),
	}
}
