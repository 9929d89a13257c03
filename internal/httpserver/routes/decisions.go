package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/mw"
)

func init() { RegisterAPI(registerDecisions) }

func registerDecisions(r chi.Router, d deps.Deps) {
	r.Route("/api/decisions", func(r chi.Router) {
		r.Use(mw.Bearer(d.Verifier, d.Logger))
		r.Post("/recompute", handlers.Recompute(d))
		r.Post("/resolve", handlers.Resolve(d))
		r.Post("/archive-others", handlers.ArchiveOthers(d))
	})
}
