package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jukebot/internal/api"
	"jukebot/internal/auth"
	"jukebot/internal/storage"
)

func newTestPages(t *testing.T) (*Pages, *api.Handler, storage.Repository) {
	t.Helper()
	store, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository returned error: %v", err)
	}
	handler := api.NewHandler(store, auth.NewSessionManager(time.Hour))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/channels", handler.Channels)
	mux.HandleFunc("/api/channels/", handler.ChannelByID)
	mux.HandleFunc("/api/suggestions", handler.Suggestions)
	client := api.NewInternalClient(mux, handler.Resolver)

	pages, err := NewPages(PagesConfig{Handler: handler, Client: client})
	if err != nil {
		t.Fatalf("NewPages returned error: %v", err)
	}
	return pages, handler, store
}

func loginCookie(t *testing.T, handler *api.Handler, subjectID int64) *http.Cookie {
	t.Helper()
	token, _, err := handler.Sessions.Create(subjectID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: "jukebot_session", Value: token}
}

func TestDashboardRendersChannels(t *testing.T) {
	pages, _, store := newTestPages(t)
	owner, err := store.CreateSubject(context.Background(), storage.CreateSubjectParams{Name: "ana"})
	if err != nil {
		t.Fatalf("CreateSubject returned error: %v", err)
	}
	if _, err := store.CreateChannel(context.Background(), owner.ID, "Nova Beats", "!"); err != nil {
		t.Fatalf("CreateChannel returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "Nova Beats") {
		t.Fatal("expected the channel title in the dashboard")
	}
}

func TestChannelPageListsTracks(t *testing.T) {
	pages, _, store := newTestPages(t)
	owner, err := store.CreateSubject(context.Background(), storage.CreateSubjectParams{Name: "ana"})
	if err != nil {
		t.Fatalf("CreateSubject returned error: %v", err)
	}
	channel, err := store.CreateChannel(context.Background(), owner.ID, "Nova Beats", "!")
	if err != nil {
		t.Fatalf("CreateChannel returned error: %v", err)
	}
	if _, err := store.CreateTrack(context.Background(), storage.CreateTrackParams{ChannelID: channel.ID, Title: "Midnight Drive"}); err != nil {
		t.Fatalf("CreateTrack returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/channels/%d", channel.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Midnight Drive") {
		t.Fatal("expected the track title on the channel page")
	}

	rec = httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown channel, got %d", rec.Code)
	}
}

func TestSuggestionsPageRequiresEditor(t *testing.T) {
	pages, handler, store := newTestPages(t)
	editor, err := store.CreateSubject(context.Background(), storage.CreateSubjectParams{Name: "ben", Level: "editor"})
	if err != nil {
		t.Fatalf("CreateSubject returned error: %v", err)
	}
	if _, err := store.CreateSuggestion(context.Background(), editor.ID, "play more synthwave"); err != nil {
		t.Fatalf("CreateSuggestion returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggestions", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an anonymous visitor, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	req.AddCookie(loginCookie(t, handler, editor.ID))
	rec = httptest.NewRecorder()
	pages.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an editor, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "play more synthwave") {
		t.Fatal("expected the suggestion text on the page")
	}
}

func TestLoginPageRedirectsAuthenticatedVisitors(t *testing.T) {
	pages, handler, store := newTestPages(t)
	subject, err := store.CreateSubject(context.Background(), storage.CreateSubjectParams{Name: "ana"})
	if err != nil {
		t.Fatalf("CreateSubject returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected the login page for anonymous visitors, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(loginCookie(t, handler, subject.ID))
	rec = httptest.NewRecorder()
	pages.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected a redirect for a logged-in visitor, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Fatalf("expected a redirect home, got %q", got)
	}
}

func TestPagesRejectNonGetMethods(t *testing.T) {
	pages, _, _ := newTestPages(t)
	rec := httptest.NewRecorder()
	pages.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
