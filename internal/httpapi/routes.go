package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sketchduel/sketchduel-backend/internal/matchmaker"
	"github.com/sketchduel/sketchduel-backend/internal/user"
	"github.com/sketchduel/sketchduel-backend/internal/ws"
)

func SetupRoutes(g *ws.Gateway, mm *matchmaker.Matchmaker, users *user.Registry, originPatterns []string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/lobby", LobbyStatus(mm))
	r.Get("/ws", ws.Handler(g, mm, users, originPatterns, log))
	return r
}
