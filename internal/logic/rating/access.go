package rating

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const (
	minScore         = 1
	maxScore         = 5
	maxFeedbackRunes = 255
)

// ownedRating loads a rating the caller is allowed to act on.
func ownedRating(ctx context.Context, svcCtx *svc.ServiceContext, ratingID string) (*db.Rating, error) {
	p, err := middleware.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if ratingID == "" {
		return nil, apperr.Validation("ratingId is required")
	}
	r, err := svcCtx.DB.GetRating(ctx, ratingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("rating not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	if !p.CanAccess(r.UserID) {
		return nil, apperr.Forbidden("access denied")
	}
	return r, nil
}

func checkScore(score int) error {
	if score < minScore || score > maxScore {
		return apperr.Validation("score must be between %d and %d", minScore, maxScore)
	}
	return nil
}

func cleanFeedback(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxFeedbackRunes {
		return "", apperr.Validation("feedback exceeds %d characters", maxFeedbackRunes)
	}
	return s, nil
}

func ToRating(r *db.Rating) types.Rating {
	return types.Rating{
		Id:        r.ID,
		UserId:    r.UserID,
		ChatId:    r.ChatID,
		Score:     r.Score,
		Feedback:  r.Feedback,
		CreatedAt: time.UnixMicro(r.CreatedAt).UTC().Format(time.RFC3339),
		UpdatedAt: time.UnixMicro(r.UpdatedAt).UTC().Format(time.RFC3339),
	}
}
