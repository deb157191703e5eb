package contract

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

func ownedContract(ctx context.Context, svcCtx *svc.ServiceContext, id string) (*db.Contract, error) {
	p, err := middleware.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.Validation("contractId is required")
	}
	c, err := svcCtx.DB.GetContract(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("contract not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	if !p.CanAccess(c.UserID) {
		return nil, apperr.Forbidden("access denied")
	}
	return c, nil
}

// ToContract converts a record for the API. The report is included only once
// the record reached a terminal state.
func ToContract(c *db.Contract) types.Contract {
	out := types.Contract{
		Id:         c.ID,
		UserId:     c.UserID,
		Filename:   c.Filename,
		Status:     c.Status,
		Characters: utf8.RuneCountInString(c.InputText),
		CreatedAt:  time.UnixMicro(c.CreatedAt).UTC().Format(time.RFC3339),
		UpdatedAt:  time.UnixMicro(c.UpdatedAt).UTC().Format(time.RFC3339),
	}
	if c.Status != db.ContractProcessing && json.Valid([]byte(c.Result)) {
		out.Report = json.RawMessage(c.Result)
	}
	return out
}
