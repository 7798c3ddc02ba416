package web

import (
	"github.com/Rohith2006/Facial-Recognition/internal/web/handlers"
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	statsHandler := handlers.NewStatsHandler(s.resolver)
	facesHandler := handlers.NewFacesHandler(s.resolver, statsHandler)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/", handlers.Welcome)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)
		r.Get("/stats", statsHandler.Get)

		r.Route("/faces", func(r chi.Router) {
			r.Post("/identify", facesHandler.Identify)
			r.Post("/register", facesHandler.Register)
			r.Get("/unnamed", facesHandler.ListUnnamed)
			r.Get("/{id}", facesHandler.Get)
			r.Put("/{id}/name", facesHandler.Rename)
			r.Get("/{id}/image", facesHandler.Image)
		})
	})
}
