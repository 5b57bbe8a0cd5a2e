package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/hub"
	"github.com/DoyleJ11/draft-bot/internal/ws"
)

type Deps struct {
	Hub        *hub.Hub
	Dispatcher *dispatch.Dispatcher
	Events     ws.Events
	Log        *zap.Logger
	WS         ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLog(d.Log))

	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/ws", ws.Handler(d.Dispatcher, d.Events, d.Log, d.WS))

	r.Route("/scopes/{scope}", func(r chi.Router) {
		r.Get("/", GetScope(d.Hub))
		r.Post("/messages", PostMessage(d.Dispatcher, d.Log))
		r.Get("/export", Export(d.Hub))
	})
	return r
}

func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
