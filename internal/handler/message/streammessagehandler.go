package message

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/message"
	"github.com/sentryai/sentry/internal/stream"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// Send a message and stream the answer as server-sent events
func StreamMessageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SendMessageRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		// The event stream is only opened once the message is accepted, so
		// rejections still get a JSON error with a proper status code.
		opened := false
		open := func() (stream.Sink, error) {
			sw, err := stream.NewWriter(w)
			if err != nil {
				return nil, err
			}
			opened = true
			return sw, nil
		}

		l := message.NewStreamMessageLogic(r.Context(), svcCtx)
		if err := l.StreamMessage(&req, open); err != nil && !opened {
			httputil.Error(w, err)
		}
	}
}
