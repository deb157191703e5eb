package contract

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type ListContractsLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListContractsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListContractsLogic {
	return &ListContractsLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListContractsLogic) ListContracts(req *types.ListContractsRequest) (*types.ListContractsResponse, error) {
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

	contracts, err := l.svcCtx.DB.ListContracts(l.ctx, userID)
	if err != nil {
		l.Errorf("Failed to list contracts: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	resp := &types.ListContractsResponse{Contracts: make([]types.Contract, len(contracts))}
	for i, c := range contracts {
		resp.Contracts[i] = ToContract(c)
	}
	return resp, nil
}
