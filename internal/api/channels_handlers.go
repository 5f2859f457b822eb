package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jukebot/internal/auth"
	"jukebot/internal/storage"
)

type createChannelRequest struct {
	Title         string `json:"title"`
	CommandPrefix string `json:"commandPrefix,omitempty"`
	OwnerID       int64  `json:"ownerId,omitempty"`
}

type updateChannelRequest struct {
	Title         *string `json:"title,omitempty"`
	CommandPrefix *string `json:"commandPrefix,omitempty"`
	BotEnabled    *bool   `json:"botEnabled,omitempty"`
}

// Channels handles the /api/channels collection. Listing is public; creation
// requires editor capability.
func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		channels, err := h.Store.ListChannels(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, channels)
	case http.MethodPost:
		identity, ok := h.requireLevel(w, r, auth.LevelEditor)
		if !ok {
			return
		}
		var payload createChannelRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ownerID := payload.OwnerID
		if ownerID == 0 {
			ownerID = identity.SubjectID
		}
		if ownerID != identity.SubjectID {
			if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
				return
			}
		}
		channel, err := h.Store.CreateChannel(r.Context(), ownerID, payload.Title, payload.CommandPrefix)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, channel)
	default:
		writeMethodNotAllowed(w, r)
	}
}

// ChannelByID handles /api/channels/{id} and the nested track routes.
func (h *Handler) ChannelByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	idPart, nested, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid channel id %q", idPart))
		return
	}
	if nested == "tracks" || strings.HasPrefix(nested, "tracks/") {
		h.channelTracks(w, r, id, strings.TrimPrefix(nested, "tracks"))
		return
	}
	if nested != "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown channel resource %q", nested))
		return
	}
	switch r.Method {
	case http.MethodGet:
		channel, ok, err := h.Store.GetChannel(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, channel)
	case http.MethodPatch:
		if _, ok := h.ensureChannelAccess(w, r, id); !ok {
			return
		}
		var payload updateChannelRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		channel, err := h.Store.UpdateChannel(r.Context(), id, storage.ChannelUpdate{
			Title:         payload.Title,
			CommandPrefix: payload.CommandPrefix,
			BotEnabled:    payload.BotEnabled,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, channel)
	case http.MethodDelete:
		if _, ok := h.requireLevel(w, r, auth.LevelAdmin); !ok {
			return
		}
		if err := h.Store.DeleteChannel(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeMethodNotAllowed(w, r)
	}
}

// ensureChannelAccess admits editors who own the channel and admins.
func (h *Handler) ensureChannelAccess(w http.ResponseWriter, r *http.Request, channelID int64) (auth.Identity, bool) {
	identity, ok := h.requireLevel(w, r, auth.LevelEditor)
	if !ok {
		return auth.Identity{}, false
	}
	channel, exists, err := h.Store.GetChannel(r.Context(), channelID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return auth.Identity{}, false
	}
	if !exists {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return auth.Identity{}, false
	}
	if channel.OwnerID == identity.SubjectID {
		return identity, true
	}
	allowed, err := auth.AtLeast(identity.Level, auth.LevelAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return auth.Identity{}, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return auth.Identity{}, false
	}
	return identity, true
}
