package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jukebot/internal/storage"
)

type createTrackRequest struct {
	Title           string `json:"title"`
	Artist          string `json:"artist,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// channelTracks routes /api/channels/{id}/tracks and the per-track subpaths.
// The remainder is "" for the collection, "/{trackID}" or
// "/{trackID}/played" otherwise.
func (h *Handler) channelTracks(w http.ResponseWriter, r *http.Request, channelID int64, remainder string) {
	remainder = strings.TrimPrefix(remainder, "/")
	if remainder == "" {
		h.trackCollection(w, r, channelID)
		return
	}
	trackPart, action, _ := strings.Cut(remainder, "/")
	trackID, err := strconv.ParseInt(trackPart, 10, 64)
	if err != nil || trackID <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid track id %q", trackPart))
		return
	}
	switch action {
	case "":
		h.trackResource(w, r, channelID, trackID)
	case "played":
		h.trackPlayed(w, r, channelID, trackID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown track action %q", action))
	}
}

func (h *Handler) trackCollection(w http.ResponseWriter, r *http.Request, channelID int64) {
	switch r.Method {
	case http.MethodGet:
		if _, ok, err := h.Store.GetChannel(r.Context(), channelID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		} else if !ok {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		tracks, err := h.Store.ListTracks(r.Context(), channelID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, tracks)
	case http.MethodPost:
		identity, ok := h.ensureChannelAccess(w, r, channelID)
		if !ok {
			return
		}
		var payload createTrackRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		track, err := h.Store.CreateTrack(r.Context(), storage.CreateTrackParams{
			ChannelID:       channelID,
			Title:           payload.Title,
			Artist:          payload.Artist,
			DurationSeconds: payload.DurationSeconds,
			RequestedBy:     identity.SubjectID,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, track)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (h *Handler) trackResource(w http.ResponseWriter, r *http.Request, channelID, trackID int64) {
	switch r.Method {
	case http.MethodGet:
		track, ok, err := h.Store.GetTrack(r.Context(), trackID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok || track.ChannelID != channelID {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, track)
	case http.MethodDelete:
		if _, ok := h.ensureChannelAccess(w, r, channelID); !ok {
			return
		}
		track, ok, err := h.Store.GetTrack(r.Context(), trackID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok || track.ChannelID != channelID {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		if err := h.Store.DeleteTrack(r.Context(), trackID); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (h *Handler) trackPlayed(w http.ResponseWriter, r *http.Request, channelID, trackID int64) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	if _, ok := h.ensureChannelAccess(w, r, channelID); !ok {
		return
	}
	track, ok, err := h.Store.GetTrack(r.Context(), trackID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok || track.ChannelID != channelID {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	updated, err := h.Store.MarkTrackPlayed(r.Context(), trackID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.recorder().TrackPlayed()
	writeJSON(w, http.StatusOK, updated)
}
