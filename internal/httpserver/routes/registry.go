package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	api bool
}

var registry []entry

// Register adds an infrastructure registrar (probes, metrics).
func Register(reg Registrar) {
	registry = append(registry, entry{reg: reg})
}

// RegisterAPI adds a registrar whose routes sit behind the shared API
// middlewares passed to RegisterAll.
func RegisterAPI(reg Registrar) {
	registry = append(registry, entry{reg: reg, api: true})
}

// RegisterAll mounts every registrar. Called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps, apiMws ...Middleware) {
	var api []Registrar
	for _, e := range registry {
		if e.api {
			api = append(api, e.reg)
			continue
		}
		e.reg(r, d)
	}

	if len(api) == 0 {
		return
	}
	r.Group(func(g chi.Router) {
		g.Use(apiMws...)
		for _, reg := range api {
			reg(g, d)
		}
	})
}
