package contract

import (
	"context"
	"strings"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/analysis"
	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const maxQuestionChars = 4000

type ContractChatLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Ask a question about an analyzed contract
func NewContractChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ContractChatLogic {
	return &ContractChatLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ContractChatLogic) ContractChat(req *types.ContractChatRequest) (*types.ContractChatResponse, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, apperr.Validation("message is required")
	}
	if len([]rune(question)) > maxQuestionChars {
		return nil, apperr.Validation("message exceeds %d characters", maxQuestionChars)
	}
	c, err := ownedContract(l.ctx, l.svcCtx, req.ContractId)
	if err != nil {
		return nil, err
	}

	var report *analysis.Report
	if c.Status == db.ContractDone {
		if report, err = analysis.DecodeReport(c.Result); err != nil {
			l.Warnf("Contract %s has an unreadable report: %v", c.ID, err)
			report = nil
		}
	}

	reply, err := l.svcCtx.Analyzer.Discuss(l.ctx, c.InputText, report, question)
	if err != nil {
		l.Warnf("Contract chat failed for %s: %v", c.ID, err)
		return nil, ai.AsAppError(err)
	}
	return &types.ContractChatResponse{Reply: strings.TrimSpace(reply)}, nil
}
