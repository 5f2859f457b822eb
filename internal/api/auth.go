package api

import (
	"context"
	"fmt"
	"net/http"

	"jukebot/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "resolvedIdentity"

// ContextWithIdentity stores the resolved identity in the provided context.
func ContextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the resolved identity from context if present.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}

// httpRequest adapts *http.Request to the resolver's request view. Session
// reports ok=false only when no session layer is configured at all; a missing
// or expired cookie is an anonymous session, not an absent one.
type httpRequest struct {
	r        *http.Request
	sessions *auth.SessionManager
}

func (a httpRequest) Param(name string) string {
	return a.r.URL.Query().Get(name)
}

func (a httpRequest) Header(name string) string {
	return a.r.Header.Get(name)
}

func (a httpRequest) Session() (auth.Session, bool) {
	if a.sessions == nil {
		return auth.Session{}, false
	}
	token := ExtractToken(a.r)
	if token == "" {
		return auth.Session{}, true
	}
	subjectID, _, ok, err := a.sessions.Validate(token)
	if err != nil || !ok {
		// A stale or unreadable cookie degrades to an anonymous session.
		return auth.Session{}, true
	}
	return auth.Session{SubjectID: subjectID}, true
}

// ResolveRequest runs identity resolution for the request with default
// options.
func (h *Handler) ResolveRequest(r *http.Request) (auth.Identity, error) {
	return h.Resolver.Resolve(r.Context(), httpRequest{r: r, sessions: h.Sessions}, auth.Options{})
}

// identity returns the middleware-resolved identity, falling back to an
// inline resolution for handlers mounted outside the identity middleware.
func (h *Handler) identity(r *http.Request) (auth.Identity, error) {
	if identity, ok := IdentityFromContext(r.Context()); ok {
		return identity, nil
	}
	return h.ResolveRequest(r)
}

// requireLevel gates a handler on a capability level. A failed gate writes
// the response and reports ok=false.
func (h *Handler) requireLevel(w http.ResponseWriter, r *http.Request, required auth.Level) (auth.Identity, bool) {
	identity, err := h.identity(r)
	if err != nil {
		WriteResolutionError(w, err)
		return auth.Identity{}, false
	}
	allowed, err := auth.AtLeast(identity.Level, required)
	if err != nil {
		// Unknown level names are programming errors, not auth failures.
		writeError(w, http.StatusInternalServerError, err)
		return auth.Identity{}, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return auth.Identity{}, false
	}
	return identity, true
}
