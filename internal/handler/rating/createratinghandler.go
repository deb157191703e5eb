package rating

import (
	"net/http"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logic/rating"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

// Rate a chat
func CreateRatingHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRatingRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := rating.NewCreateRatingLogic(r.Context(), svcCtx)
		resp, err := l.CreateRating(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.Created(w, resp)
		}
	}
}
