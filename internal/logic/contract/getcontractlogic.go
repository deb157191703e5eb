package contract

import (
	"context"

	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type GetContractLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Poll a contract for its analysis
func NewGetContractLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetContractLogic {
	return &GetContractLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetContractLogic) GetContract(req *types.GetContractRequest) (*types.Contract, error) {
	c, err := ownedContract(l.ctx, l.svcCtx, req.ContractId)
	if err != nil {
		return nil, err
	}
	resp := ToContract(c)
	return &resp, nil
}
