package auth

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/auth"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

func LoginHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LoginRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := auth.NewLoginLogic(r.Context(), svcCtx)
		resp, err := l.Login(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
