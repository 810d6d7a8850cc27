package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	authhandler "github.com/Satwikmbadiger/EmoTutor/internal/handler/auth"
	chathandler "github.com/Satwikmbadiger/EmoTutor/internal/handler/chat"
	panelhandler "github.com/Satwikmbadiger/EmoTutor/internal/handler/panel"
	"github.com/Satwikmbadiger/EmoTutor/internal/middleware"
	panelservice "github.com/Satwikmbadiger/EmoTutor/internal/service/panel"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/session"
	"github.com/Satwikmbadiger/EmoTutor/pkg/utils"
)

// NewRouter wires HTTP routes to the client engine. The chat view and the
// panel socket are only reachable once an identity is established.
func NewRouter(authCtx *auth.Context, provider auth.Provider, controller *session.Controller, classifier panelservice.Classifier, panelCfg panelservice.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	authHandler := authhandler.New(provider, authCtx)
	chatHandler := chathandler.New(controller)
	panelHandler := panelhandler.NewWebSocketHandler(classifier, controller, panelCfg)

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api)

		api.Group(func(guarded chi.Router) {
			guarded.Use(requireIdentity(authCtx))
			chatHandler.RegisterRoutes(guarded)
			panelHandler.RegisterRoutes(guarded)
		})
	})

	return r
}

// requireIdentity 拦截未登录的访问，对应前端的受保护路由。
func requireIdentity(authCtx *auth.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := authCtx.Current(); !ok {
				utils.RespondError(w, http.StatusUnauthorized, auth.ErrNoIdentity.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
