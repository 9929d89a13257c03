package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/mw"
)

func init() { RegisterAPI(registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	r.Route("/api/links", func(r chi.Router) {
		r.Use(mw.Bearer(d.Verifier, d.Logger))
		r.Post("/flags", handlers.SetFlags(d))
		r.Post("/open", handlers.RecordOpen(d))
	})
}
