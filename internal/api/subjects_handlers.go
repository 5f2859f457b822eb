package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jukebot/internal/auth"
	"jukebot/internal/models"
	"jukebot/internal/storage"
)

type createSubjectRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	Level      string `json:"level,omitempty"`
	WithSecret bool   `json:"withSecret,omitempty"`
}

type updateSubjectRequest struct {
	Name string `json:"name"`
}

type setLevelRequest struct {
	Level string `json:"level"`
}

type setBanRequest struct {
	Banned bool `json:"banned"`
}

// sanitizeSubject strips credential material before a record leaves the API.
func sanitizeSubject(subject models.Subject) models.Subject {
	subject.AuthSecret = ""
	subject.PasswordHash = ""
	return subject
}

// Subjects handles the /api/subjects collection.
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
		subjects, err := h.Store.ListSubjects(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		sanitized := make([]models.Subject, 0, len(subjects))
		for _, subject := range subjects {
			sanitized = append(sanitized, sanitizeSubject(subject))
		}
		writeJSON(w, http.StatusOK, sanitized)
	case http.MethodPost:
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
		var payload createSubjectRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		subject, err := h.Store.CreateSubject(r.Context(), storage.CreateSubjectParams{
			Name:       payload.Name,
			Password:   payload.Password,
			Level:      payload.Level,
			WithSecret: payload.WithSecret,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// The generated secret is shown exactly once, on creation.
		writeJSON(w, http.StatusCreated, subject)
	default:
		writeMethodNotAllowed(w, r)
	}
}

// SubjectByID handles /api/subjects/{id} and its ban/level/secret subpaths.
func (h *Handler) SubjectByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/subjects/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid subject id %q", idPart))
		return
	}
	switch action {
	case "":
		h.subjectResource(w, r, id)
	case "ban":
		h.subjectBan(w, r, id)
	case "level":
		h.subjectLevel(w, r, id)
	case "secret":
		h.subjectSecret(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown subject action %q", action))
	}
}

func (h *Handler) subjectResource(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		identity, ok := h.requireLevel(w, r, auth.LevelLogin)
		if !ok {
			return
		}
		if identity.SubjectID != id {
			if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
				return
			}
		}
		subject, exists, err := h.Store.FindSubjectByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sanitizeSubject(subject))
	case http.MethodPatch:
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
		var payload updateSubjectRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		subject, err := h.Store.UpdateSubjectName(r.Context(), id, payload.Name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sanitizeSubject(subject))
	case http.MethodDelete:
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
		if err := h.Store.DeleteSubject(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (h *Handler) subjectBan(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w, r)
		return
	}
	identity, ok := h.requireLevel(w, r, auth.LevelAdmin)
	if !ok {
		return
	}
	if identity.SubjectID == id {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cannot change your own ban state"))
		return
	}
	var payload setBanRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Store.SetGlobalBan(r.Context(), id, payload.Banned); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"banned": payload.Banned})
}

func (h *Handler) subjectLevel(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w, r)
		return
	}
	if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
		return
	}
	var payload setLevelRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Level != "" {
		if _, err := auth.ParseLevel(payload.Level); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if err := h.Store.SetSubjectProperty(r.Context(), id, auth.LevelProperty, payload.Level); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"level": payload.Level})
}

func (h *Handler) subjectSecret(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	identity, ok := h.requireLevel(w, r, auth.LevelLogin)
	if !ok {
		return
	}
	if identity.SubjectID != id {
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
	}
	subject, err := h.Store.RotateAuthSecret(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	// The fresh secret is the point of the rotation; return it un-sanitized.
	writeJSON(w, http.StatusOK, map[string]string{"authSecret": subject.AuthSecret})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}
