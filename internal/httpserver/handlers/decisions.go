package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/mw"
)

type recomputeRequest struct {
	CollectionID string `json:"collectionId"`
}

type resolveRequest struct {
	CollectionID    string `json:"collectionId"`
	DecisionGroupID string `json:"decisionGroupId"`
}

type archiveRequest struct {
	CollectionID    string `json:"collectionId"`
	DecisionGroupID string `json:"decisionGroupId"`
	ChosenLinkID    string `json:"chosenLinkId"`
}

// Recompute regroups the recent items of a collection.
func Recompute(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recomputeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		res, err := d.Engine.Recompute(r.Context(), mw.UserID(r.Context()), req.CollectionID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// Resolve reports, and when unambiguous records, the winner of a group.
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		res, err := d.Engine.ResolveGroup(r.Context(), mw.UserID(r.Context()), req.CollectionID, req.DecisionGroupID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ArchiveOthers dismisses every group member except the chosen one.
func ArchiveOthers(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req archiveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		res, err := d.Engine.ArchiveOthers(r.Context(), mw.UserID(r.Context()),
			req.CollectionID, req.DecisionGroupID, req.ChosenLinkID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
