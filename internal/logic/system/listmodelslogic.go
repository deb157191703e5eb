package system

import (
	"context"

	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type ListModelsLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// List configured model providers
func NewListModelsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListModelsLogic {
	return &ListModelsLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListModelsLogic) ListModels() (*types.ModelsResponse, error) {
	kinds := l.svcCtx.Registry.Available()
	resp := &types.ModelsResponse{
		Providers:     make([]string, len(kinds)),
		DefaultModel:  l.svcCtx.Config.Chat.DefaultModel,
		TitleModel:    l.svcCtx.Config.Chat.TitleModel,
		AnalysisModel: l.svcCtx.Config.Analysis.Model,
	}
	for i, k := range kinds {
		resp.Providers[i] = string(k)
	}
	return resp, nil
}
