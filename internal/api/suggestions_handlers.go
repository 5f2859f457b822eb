package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jukebot/internal/auth"
	"jukebot/internal/models"
	"jukebot/internal/storage"
)

type createSuggestionRequest struct {
	Text string `json:"text"`
}

type resolveSuggestionRequest struct {
	Status string `json:"status"`
}

// Suggestions handles the /api/suggestions collection. Creation needs a
// logged-in subject; listing needs editor capability since it exposes
// authorship across the whole site.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireLevel(w, r, auth.LevelEditor); !ok {
			return
		}
		status := r.URL.Query().Get("status")
		if status != "" && status != models.SuggestionOpen && status != models.SuggestionAccepted && status != models.SuggestionRejected {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid status filter %q", status))
			return
		}
		suggestions, err := h.Store.ListSuggestions(r.Context(), status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestions)
	case http.MethodPost:
		identity, ok := h.requireLevel(w, r, auth.LevelLogin)
		if !ok {
			return
		}
		var payload createSuggestionRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		suggestion, err := h.Store.CreateSuggestion(r.Context(), identity.SubjectID, payload.Text)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.recorder().ObserveSuggestion(suggestion.Status)
		writeJSON(w, http.StatusCreated, suggestion)
	default:
		writeMethodNotAllowed(w, r)
	}
}

// SuggestionByID handles /api/suggestions/{id} and its resolve subpath.
func (h *Handler) SuggestionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/suggestions/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid suggestion id %q", idPart))
		return
	}
	switch action {
	case "":
		h.suggestionResource(w, r, id)
	case "resolve":
		h.suggestionResolve(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown suggestion action %q", action))
	}
}

func (h *Handler) suggestionResource(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		identity, ok := h.requireLevel(w, r, auth.LevelLogin)
		if !ok {
			return
		}
		suggestion, exists, err := h.Store.GetSuggestion(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		if suggestion.AuthorID != identity.SubjectID {
			if _, ok := h.requireLevel(w, r, auth.LevelEditor); !ok {
				return
			}
		}
		writeJSON(w, http.StatusOK, suggestion)
	case http.MethodDelete:
		if _, ok := h.requireLevel(w, r, auth.LevelEditor); !ok {
			return
		}
		if err := h.Store.DeleteSuggestion(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (h *Handler) suggestionResolve(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	identity, ok := h.requireLevel(w, r, auth.LevelEditor)
	if !ok {
		return
	}
	var payload resolveSuggestionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	suggestion, err := h.Store.ResolveSuggestion(r.Context(), id, identity.SubjectID, payload.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.recorder().ObserveSuggestion(suggestion.Status)
	writeJSON(w, http.StatusOK, suggestion)
}
