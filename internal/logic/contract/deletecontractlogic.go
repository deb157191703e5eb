package contract

import (
	"context"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type DeleteContractLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewDeleteContractLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DeleteContractLogic {
	return &DeleteContractLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// DeleteContract removes the record. A job still running for it finds no row
// to finalize and its result is dropped.
func (l *DeleteContractLogic) DeleteContract(req *types.DeleteContractRequest) (*types.DeleteResponse, error) {
	if _, err := ownedContract(l.ctx, l.svcCtx, req.ContractId); err != nil {
		return nil, err
	}
	if err := l.svcCtx.DB.DeleteContract(l.ctx, req.ContractId); err != nil {
		l.Errorf("Failed to delete contract %s: %v", req.ContractId, err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "")
	}
	return &types.DeleteResponse{Success: true}, nil
}
