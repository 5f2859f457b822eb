package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"jukebot/internal/auth"
	"jukebot/internal/models"
	"jukebot/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, storage.Repository) {
	t.Helper()
	store, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository returned error: %v", err)
	}
	handler := NewHandler(store, auth.NewSessionManager(time.Hour))
	return handler, store
}

func createSubject(t *testing.T, store storage.Repository, params storage.CreateSubjectParams) models.Subject {
	t.Helper()
	subject, err := store.CreateSubject(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateSubject(%q) returned error: %v", params.Name, err)
	}
	return subject
}

func postLogin(t *testing.T, handler *Handler, name, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"name":"` + name + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "jukebot_session" {
			return cookie
		}
	}
	t.Fatal("expected a jukebot_session cookie")
	return nil
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	handler, store := newTestHandler(t)
	createSubject(t, store, storage.CreateSubjectParams{Name: "ana", Password: "hunter2hunter2", Level: "editor"})

	rec := postLogin(t, handler, "ana", "hunter2hunter2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected an http-only session cookie, got %+v", cookie)
	}

	var payload sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.Name != "ana" || payload.Level != "editor" {
		t.Fatalf("unexpected login response %+v", payload)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.Session(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from session endpoint, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if payload.SubjectID == 0 || payload.Level != "editor" {
		t.Fatalf("unexpected session response %+v", payload)
	}
}

func TestLoginFailures(t *testing.T) {
	handler, store := newTestHandler(t)
	createSubject(t, store, storage.CreateSubjectParams{Name: "ana", Password: "hunter2hunter2"})
	createSubject(t, store, storage.CreateSubjectParams{Name: "botaccount"})
	banned := createSubject(t, store, storage.CreateSubjectParams{Name: "outcast", Password: "hunter2hunter2"})
	if err := store.SetGlobalBan(context.Background(), banned.ID, true); err != nil {
		t.Fatalf("SetGlobalBan returned error: %v", err)
	}

	if rec := postLogin(t, handler, "ana", "wrong-password"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
	if rec := postLogin(t, handler, "nobody", "whatever"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown name, got %d", rec.Code)
	}
	if rec := postLogin(t, handler, "botaccount", "whatever"); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for password-less account, got %d", rec.Code)
	}
	if rec := postLogin(t, handler, "outcast", "hunter2hunter2"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for banned subject, got %d", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	handler, store := newTestHandler(t)
	createSubject(t, store, storage.CreateSubjectParams{Name: "ana", Password: "hunter2hunter2"})

	cookie := sessionCookie(t, postLogin(t, handler, "ana", "hunter2hunter2"))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	cleared := sessionCookie(t, rec)
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("expected the cookie to be cleared, got %+v", cleared)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.Session(rec, req)
	var payload sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if payload.SubjectID != 0 || payload.Level != string(auth.LevelNone) {
		t.Fatalf("expected anonymous session after logout, got %+v", payload)
	}
}

func TestSubjectsRequiresAdmin(t *testing.T) {
	handler, store := newTestHandler(t)
	createSubject(t, store, storage.CreateSubjectParams{Name: "ana", Password: "hunter2hunter2"})
	createSubject(t, store, storage.CreateSubjectParams{Name: "root", Password: "hunter2hunter2", Level: "admin"})

	cookie := sessionCookie(t, postLogin(t, handler, "ana", "hunter2hunter2"))
	req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.Subjects(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for login-level subject, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	rec = httptest.NewRecorder()
	handler.Subjects(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous visitor, got %d", rec.Code)
	}

	cookie = sessionCookie(t, postLogin(t, handler, "root", "hunter2hunter2"))
	req = httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.Subjects(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	var subjects []models.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &subjects); err != nil {
		t.Fatalf("decode subjects: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(subjects))
	}
	for _, subject := range subjects {
		if subject.AuthSecret != "" || subject.PasswordHash != "" {
			t.Fatalf("credential material leaked for %+v", subject)
		}
	}
}

func TestQuerySecretAuthOverHTTP(t *testing.T) {
	handler, store := newTestHandler(t)
	admin := createSubject(t, store, storage.CreateSubjectParams{Name: "root", Level: "admin", WithSecret: true})

	target := "/api/subjects?auth_user=" + admin.Name + "&auth_key=" + admin.AuthSecret
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.Subjects(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via query secret, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/subjects?auth_user=root&auth_key=wrong", nil)
	rec = httptest.NewRecorder()
	handler.Subjects(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}

func TestSessionEndpointWithoutSessionLayer(t *testing.T) {
	store, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository returned error: %v", err)
	}
	handler := &Handler{
		Store:    store,
		Resolver: auth.NewResolver(store, auth.NewLocalTokens()),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rec := httptest.NewRecorder()
	handler.Session(rec, req)
	if rec.Code != 440 {
		t.Fatalf("expected status 440 without a session layer, got %d", rec.Code)
	}
}

func TestInternalClientRoundTrip(t *testing.T) {
	handler, store := newTestHandler(t)
	subject := createSubject(t, store, storage.CreateSubjectParams{Name: "ana", Level: "editor"})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/session", handler.Session)
	client := NewInternalClient(mux, handler.Resolver)

	var payload sessionResponse
	if err := client.GetJSON(context.Background(), subject.ID, "/api/auth/session", &payload); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if payload.SubjectID != subject.ID || payload.Level != "editor" {
		t.Fatalf("unexpected internal session response %+v", payload)
	}

	// A grant is single-use: a hand-built request reusing the credential
	// without a fresh grant must be rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session?local_user="+strconv.FormatInt(subject.ID, 10), nil)
	rec := httptest.NewRecorder()
	handler.Session(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for replayed local credential, got %d", rec.Code)
	}
}

func TestInternalClientAnonymousSubject(t *testing.T) {
	handler, _ := newTestHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/session", handler.Session)
	client := NewInternalClient(mux, handler.Resolver)

	var payload sessionResponse
	if err := client.GetJSON(context.Background(), 0, "/api/auth/session", &payload); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if payload.SubjectID != 0 || payload.Level != string(auth.LevelNone) {
		t.Fatalf("expected anonymous identity, got %+v", payload)
	}
}
