package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/mw"
)

type flagsRequest struct {
	LinkID      string `json:"linkId"`
	Shortlisted *bool  `json:"shortlisted"`
	Dismissed   *bool  `json:"dismissed"`
}

type openRequest struct {
	LinkID string `json:"linkId"`
}

// SetFlags toggles shortlisted / dismissed on one link.
func SetFlags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req flagsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		snap, err := d.Engine.SetFlags(r.Context(), mw.UserID(r.Context()), req.LinkID, decision.FlagUpdate{
			Shortlisted: req.Shortlisted,
			Dismissed:   req.Dismissed,
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// RecordOpen counts one open of a link.
func RecordOpen(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		eng, err := d.Engine.RecordOpen(r.Context(), mw.UserID(r.Context()), req.LinkID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, eng)
	}
}
