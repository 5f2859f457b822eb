package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"jukebot/internal/api"
	"jukebot/internal/auth"
	"jukebot/internal/models"
)

// PagesConfig wires the server-rendered dashboard to the API. Pages resolve
// the visitor once, then fetch their data through the internal client so the
// HTML views reuse the API's shaping and access checks instead of querying
// storage directly.
type PagesConfig struct {
	Handler *api.Handler
	Client  *api.InternalClient
	Logger  *slog.Logger
}

// Pages serves the HTML dashboard.
type Pages struct {
	handler   *api.Handler
	client    *api.InternalClient
	logger    *slog.Logger
	templates map[string]*template.Template
	mux       *http.ServeMux
}

// NewPages parses the embedded templates and builds the page router.
func NewPages(cfg PagesConfig) (*Pages, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("pages require an api handler")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("pages require an internal client")
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	p := &Pages{
		handler:   cfg.Handler,
		client:    cfg.Client,
		logger:    cfg.Logger,
		templates: templates,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", p.dashboard)
	mux.HandleFunc("/channels/", p.channel)
	mux.HandleFunc("/suggestions", p.suggestions)
	mux.HandleFunc("/login", p.login)
	p.mux = mux
	return p, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	names := []string{"dashboard", "channel", "suggestions", "login", "error"}
	templates := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, fmt.Sprintf("method %s not allowed", r.Method), http.StatusMethodNotAllowed)
		return
	}
	p.mux.ServeHTTP(w, r)
}

type viewerView struct {
	LoggedIn  bool
	SubjectID int64
	Name      string
	Level     string
}

type pageData struct {
	Title       string
	Viewer      viewerView
	Channels    []models.Channel
	Channel     *models.Channel
	Tracks      []models.Track
	Suggestions []models.Suggestion
	Message     string
}

func (p *Pages) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	identity, ok := p.resolveViewer(w, r)
	if !ok {
		return
	}

	var channels []models.Channel
	if err := p.client.GetJSON(r.Context(), identity.SubjectID, "/api/channels", &channels); err != nil {
		p.renderFetchError(w, r, "load channels", err)
		return
	}
	p.render(w, http.StatusOK, "dashboard", pageData{
		Title:    "Channels",
		Viewer:   viewerFor(identity),
		Channels: channels,
	})
}

func (p *Pages) channel(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimPrefix(r.URL.Path, "/channels/")
	if idPart == "" || strings.Contains(idPart, "/") {
		http.NotFound(w, r)
		return
	}
	channelID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || channelID <= 0 {
		http.NotFound(w, r)
		return
	}
	identity, ok := p.resolveViewer(w, r)
	if !ok {
		return
	}

	var channel models.Channel
	base := fmt.Sprintf("/api/channels/%d", channelID)
	if err := p.client.GetJSON(r.Context(), identity.SubjectID, base, &channel); err != nil {
		p.renderError(w, http.StatusNotFound, viewerFor(identity), "channel not found")
		return
	}
	var tracks []models.Track
	if err := p.client.GetJSON(r.Context(), identity.SubjectID, base+"/tracks", &tracks); err != nil {
		p.renderFetchError(w, r, "load tracks", err)
		return
	}
	p.render(w, http.StatusOK, "channel", pageData{
		Title:   channel.Title,
		Viewer:  viewerFor(identity),
		Channel: &channel,
		Tracks:  tracks,
	})
}

func (p *Pages) suggestions(w http.ResponseWriter, r *http.Request) {
	identity, ok := p.resolveViewer(w, r)
	if !ok {
		return
	}
	allowed, err := auth.AtLeast(identity.Level, auth.LevelEditor)
	if err != nil {
		p.renderError(w, http.StatusInternalServerError, viewerFor(identity), "could not check your access")
		return
	}
	if !allowed {
		p.renderError(w, http.StatusForbidden, viewerFor(identity), "the suggestion queue is for editors")
		return
	}

	var suggestions []models.Suggestion
	if err := p.client.GetJSON(r.Context(), identity.SubjectID, "/api/suggestions", &suggestions); err != nil {
		p.renderFetchError(w, r, "load suggestions", err)
		return
	}
	p.render(w, http.StatusOK, "suggestions", pageData{
		Title:       "Suggestions",
		Viewer:      viewerFor(identity),
		Suggestions: suggestions,
	})
}

func (p *Pages) login(w http.ResponseWriter, r *http.Request) {
	identity, ok := p.resolveViewer(w, r)
	if !ok {
		return
	}
	if !identity.Anonymous() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p.render(w, http.StatusOK, "login", pageData{
		Title:  "Sign in",
		Viewer: viewerFor(identity),
	})
}

// resolveViewer turns the browser request into an identity. Anonymous
// visitors are fine; a failed credential still renders an error page rather
// than a bare status so the dashboard stays navigable.
func (p *Pages) resolveViewer(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, err := p.handler.ResolveRequest(r)
	if err != nil {
		if resErr, ok := auth.AsError(err); ok {
			p.renderError(w, resErr.HTTPStatus(), viewerView{}, resErr.Message)
		} else {
			p.renderError(w, http.StatusInternalServerError, viewerView{}, "could not resolve your session")
		}
		return auth.Identity{}, false
	}
	return identity, true
}

func viewerFor(identity auth.Identity) viewerView {
	view := viewerView{
		LoggedIn:  !identity.Anonymous(),
		SubjectID: identity.SubjectID,
		Level:     string(identity.Level),
	}
	if identity.Subject != nil {
		view.Name = identity.Subject.Name
	}
	return view
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, data pageData) {
	tmpl, ok := p.templates[name]
	if !ok {
		http.Error(w, "page template missing", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		if p.logger != nil {
			p.logger.Error("render page", "template", name, "error", err)
		}
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *Pages) renderError(w http.ResponseWriter, status int, viewer viewerView, message string) {
	p.render(w, status, "error", pageData{
		Title:   "Something went wrong",
		Viewer:  viewer,
		Message: message,
	})
}

func (p *Pages) renderFetchError(w http.ResponseWriter, r *http.Request, what string, err error) {
	if p.logger != nil {
		p.logger.Error("internal fetch failed", "action", what, "path", r.URL.Path, "error", err)
	}
	p.renderError(w, http.StatusBadGateway, viewerView{}, "could not "+what)
}
