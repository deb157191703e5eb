package message

import (
	"context"

	"github.com/sentryai/sentry/internal/conversation"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

type StreamMessageLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Send a message and stream the answer as server-sent events
func NewStreamMessageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StreamMessageLogic {
	return &StreamMessageLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// StreamMessage returns an error only when the stream could not be opened;
// later failures are reported inside the stream.
func (l *StreamMessageLogic) StreamMessage(req *types.SendMessageRequest, open conversation.SinkOpener) error {
	turnReq, err := newTurnRequest(l.ctx, req)
	if err != nil {
		return err
	}
	res, err := l.svcCtx.Orchestrator.Stream(l.ctx, turnReq, open)
	if err != nil {
		return err
	}
	if res.AssistantTurn != nil {
		l.Debugf("Streamed %d chars into chat %s (partial=%t)", len(res.Outcome.Text), req.ChatId, res.Outcome.Partial())
	}
	return nil
}
