package auth

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/auth"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// Create an account
func RegisterHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RegisterRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := auth.NewRegisterLogic(r.Context(), svcCtx)
		resp, err := l.Register(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
