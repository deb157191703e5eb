package chat

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/chat"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

func DeleteChatHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DeleteChatRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := chat.NewDeleteChatLogic(r.Context(), svcCtx)
		resp, err := l.DeleteChat(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
