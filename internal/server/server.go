package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sentryai/sentry/internal/config"
	"github.com/sentryai/sentry/internal/handler"
	"github.com/sentryai/sentry/internal/handler/auth"
	"github.com/sentryai/sentry/internal/handler/chat"
	"github.com/sentryai/sentry/internal/handler/contract"
	"github.com/sentryai/sentry/internal/handler/dashboard"
	"github.com/sentryai/sentry/internal/handler/knowledge"
	"github.com/sentryai/sentry/internal/handler/message"
	"github.com/sentryai/sentry/internal/handler/rating"
	"github.com/sentryai/sentry/internal/handler/system"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/middleware"
	"github.com/sentryai/sentry/internal/svc"
)

// ServerOptions holds optional overrides for Run.
type ServerOptions struct {
	// SvcCtx is a pre-built service context. Run does not close it.
	SvcCtx *svc.ServiceContext
	// Quiet disables the access log.
	Quiet bool
}

// Run serves the API until ctx is cancelled, then shuts down gracefully:
// in-flight requests finish, the sweeper stops and queued analyses drain.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	svcCtx := o.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(ctx, c)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), c.Server.ShutdownTimeout)
			defer cancel()
			if err := svcCtx.Close(closeCtx); err != nil {
				logging.Errorf("shutdown: %v", err)
			}
		}()
	}

	if err := svcCtx.Policy.Watch(ctx); err != nil {
		logging.Warnf("policy hot reload disabled: %v", err)
	}
	if err := svcCtx.Sweeper.Start(ctx, c.Analysis.SweepSchedule); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.Addr(),
		Handler:           NewRouter(svcCtx, o),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Infof("Server ready at http://%s", c.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Infof("Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// NewRouter builds the HTTP routes around svcCtx.
func NewRouter(svcCtx *svc.ServiceContext, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogContext)
	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(svcCtx.Config.Origins()))

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		registerAuthRoutes(r, svcCtx)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTMiddleware(svcCtx.Config.Auth.AccessSecret))
			registerProtectedRoutes(r, svcCtx)
		})
	})
	return r
}

func registerAuthRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Post("/auth/register", auth.RegisterHandler(svcCtx))
	r.Post("/auth/login", auth.LoginHandler(svcCtx))
}

func registerProtectedRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/me", auth.GetMeHandler(svcCtx))

	r.Post("/chats", chat.CreateChatHandler(svcCtx))
	r.Get("/chats", chat.ListChatsHandler(svcCtx))
	r.Get("/chats/{chatId}", chat.GetChatHandler(svcCtx))
	r.Put("/chats/{chatId}", chat.UpdateChatHandler(svcCtx))
	r.Delete("/chats/{chatId}", chat.DeleteChatHandler(svcCtx))
	r.Get("/chats/{chatId}/messages", chat.ListMessagesHandler(svcCtx))

	r.Post("/messages", message.SendMessageHandler(svcCtx))
	r.Post("/messages/stream", message.StreamMessageHandler(svcCtx))

	r.Post("/contracts", contract.SubmitContractHandler(svcCtx))
	r.Get("/contracts", contract.ListContractsHandler(svcCtx))
	r.Get("/contracts/{contractId}", contract.GetContractHandler(svcCtx))
	r.Delete("/contracts/{contractId}", contract.DeleteContractHandler(svcCtx))
	r.Post("/contracts/{contractId}/chat", contract.ContractChatHandler(svcCtx))

	r.Post("/ratings", rating.CreateRatingHandler(svcCtx))
	r.Get("/ratings", rating.ListRatingsHandler(svcCtx))
	r.Get("/ratings/{ratingId}", rating.GetRatingHandler(svcCtx))
	r.Put("/ratings/{ratingId}", rating.UpdateRatingHandler(svcCtx))
	r.Delete("/ratings/{ratingId}", rating.DeleteRatingHandler(svcCtx))

	r.Get("/dashboard/stats", dashboard.DashboardStatsHandler(svcCtx))

	r.Get("/models", system.ListModelsHandler(svcCtx))
	r.Get("/knowledge/search", knowledge.SearchKnowledgeHandler(svcCtx))
}

// requestLogContext tags the contextual logger with the chi request id.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.NewContext(r.Context(), "request", id))
		}
		next.ServeHTTP(w, r)
	})
}
