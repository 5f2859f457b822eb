package api

import (
	"errors"
	"fmt"
	"net/http"

	"jukebot/internal/auth"
	"jukebot/internal/storage"
)

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SubjectID int64  `json:"subjectId,omitempty"`
	Name      string `json:"name,omitempty"`
	Level     string `json:"level"`
}

// Login authenticates site credentials and issues a session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	subject, err := h.Store.AuthenticateSubject(r.Context(), payload.Name, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err)
		case errors.Is(err, storage.ErrPasswordLoginUnsupported):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	banned, err := h.Store.IsGloballyBanned(r.Context(), subject.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if banned {
		writeError(w, http.StatusForbidden, fmt.Errorf("access revoked"))
		return
	}
	token, expires, err := h.Sessions.Create(subject.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.recorder().SessionOpened()
	h.setSessionCookie(w, r, token, expires)
	writeJSON(w, http.StatusOK, sessionResponse{
		SubjectID: subject.ID,
		Name:      subject.Name,
		Level:     string(levelForResponse(r, h, subject.ID)),
	})
}

// Logout revokes the current session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	if token := ExtractToken(r); token != "" {
		if err := h.Sessions.Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		h.recorder().SessionClosed()
	}
	h.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusNoContent, nil)
}

// Session reports the caller's resolved identity, anonymous included.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	identity, err := h.identity(r)
	if err != nil {
		WriteResolutionError(w, err)
		return
	}
	response := sessionResponse{Level: string(identity.Level)}
	if identity.Subject != nil {
		response.SubjectID = identity.SubjectID
		response.Name = identity.Subject.Name
	}
	writeJSON(w, http.StatusOK, response)
}

// levelForResponse derives the level shown right after login, falling back to
// the login default when the property lookup fails.
func levelForResponse(r *http.Request, h *Handler, subjectID int64) auth.Level {
	value, ok, err := h.Store.SubjectProperty(r.Context(), subjectID, auth.LevelProperty)
	if err != nil || !ok || value == "" {
		return auth.LevelLogin
	}
	level, err := auth.ParseLevel(value)
	if err != nil {
		return auth.LevelLogin
	}
	return level
}
