package handler

import (
	"net/http"
	"time"

	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const version = "1.0.0"

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := &types.HealthResponse{
			Status:    "healthy",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if svcCtx.Pool != nil {
			s := svcCtx.Pool.Stats()
			resp.Analysis = &types.AnalysisStats{Workers: s.Workers, Active: s.Active, Queued: s.Queued}
		}
		if err := svcCtx.DB.DB().PingContext(r.Context()); err != nil {
			resp.Status = "degraded"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.OkJSON(w, resp)
	}
}
