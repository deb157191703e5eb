package auth

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/auth"
	"github.com/sentryai/sentry/internal/svc"
)

// Current user
func GetMeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := auth.NewGetMeLogic(r.Context(), svcCtx)
		resp, err := l.GetMe()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
