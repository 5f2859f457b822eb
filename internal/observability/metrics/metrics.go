package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// ResolutionLabel identifies a credential resolution outcome by the scheme
// that claimed the request and the result it produced.
type ResolutionLabel struct {
	Scheme  string
	Outcome string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests,
// credential resolutions, session lifecycle, local request tokens, and login
// throttling. Writers coordinate via a RWMutex; the session gauge uses an
// atomic so concurrent logins stay consistent.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	resolutionCount  map[ResolutionLabel]uint64
	sessionEvents    map[string]uint64
	localTokenEvents map[string]uint64
	throttleHits     map[string]uint64
	suggestionEvents map[string]uint64
	trackPlays       atomic.Uint64
	activeSessions   atomic.Int64
	localTokenGauge  func() int
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		resolutionCount:  make(map[ResolutionLabel]uint64),
		sessionEvents:    make(map[string]uint64),
		localTokenEvents: make(map[string]uint64),
		throttleHits:     make(map[string]uint64),
		suggestionEvents: make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by the package-level helpers.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveResolution records a credential resolution by scheme and outcome
// ("success", "anonymous", or the error kind).
func (r *Recorder) ObserveResolution(scheme, outcome string) {
	label := ResolutionLabel{
		Scheme:  normalizeName(scheme),
		Outcome: normalizeName(outcome),
	}
	r.mu.Lock()
	r.resolutionCount[label]++
	r.mu.Unlock()
}

// SessionOpened records a session creation and increments the active gauge.
func (r *Recorder) SessionOpened() {
	r.incrementSessionEvent("open")
	r.activeSessions.Add(1)
}

// SessionClosed records a session revocation and decrements the active gauge,
// guarding against negative counts when concurrent updates race.
func (r *Recorder) SessionClosed() {
	r.incrementSessionEvent("close")
	r.decrementGauge(&r.activeSessions)
}

// SessionExpired records an idle or absolute session expiry.
func (r *Recorder) SessionExpired() {
	r.incrementSessionEvent("expire")
	r.decrementGauge(&r.activeSessions)
}

func (r *Recorder) incrementSessionEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.sessionEvents[normalized]++
	r.mu.Unlock()
}

// ObserveLocalToken records a local request token event ("grant", "consume",
// or "miss" when a consume finds no outstanding grant).
func (r *Recorder) ObserveLocalToken(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.localTokenEvents[normalized]++
	r.mu.Unlock()
}

// SetLocalTokenSource installs a callback reporting the number of outstanding
// local request grants, sampled at scrape time.
func (r *Recorder) SetLocalTokenSource(source func() int) {
	r.mu.Lock()
	r.localTokenGauge = source
	r.mu.Unlock()
}

// ObserveThrottleHit records a rejected request keyed by throttle scope
// (e.g. "login", "global").
func (r *Recorder) ObserveThrottleHit(scope string) {
	normalized := normalizeName(scope)
	r.mu.Lock()
	r.throttleHits[normalized]++
	r.mu.Unlock()
}

// ObserveSuggestion records a suggestion lifecycle event keyed by the
// resulting status.
func (r *Recorder) ObserveSuggestion(status string) {
	normalized := normalizeName(status)
	r.mu.Lock()
	r.suggestionEvents[normalized]++
	r.mu.Unlock()
}

// TrackPlayed increments the playback counter.
func (r *Recorder) TrackPlayed() {
	r.trackPlays.Add(1)
}

// ActiveSessions exposes the current gauge of live sessions.
func (r *Recorder) ActiveSessions() int64 {
	return r.activeSessions.Load()
}

// ResolutionCounts returns a copy of the resolution counters for reporting
// and tests.
func (r *Recorder) ResolutionCounts() map[ResolutionLabel]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[ResolutionLabel]uint64, len(r.resolutionCount))
	for k, v := range r.resolutionCount {
		counts[k] = v
	}
	return counts
}

// LocalTokenCounts returns a copy of the local token event counters.
func (r *Recorder) LocalTokenCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.localTokenEvents))
	for k, v := range r.localTokenEvents {
		counts[k] = v
	}
	return counts
}

// Reset clears all counters and gauges. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.resolutionCount = make(map[ResolutionLabel]uint64)
	r.sessionEvents = make(map[string]uint64)
	r.localTokenEvents = make(map[string]uint64)
	r.throttleHits = make(map[string]uint64)
	r.suggestionEvents = make(map[string]uint64)
	r.trackPlays.Store(0)
	r.activeSessions.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format, sorting label sets to
// provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	resolutionLabels := r.sortedResolutionLabels()
	sessionEvents := sortedKeys(r.sessionEvents)
	localTokenEvents := sortedKeys(r.localTokenEvents)
	throttleScopes := sortedKeys(r.throttleHits)
	suggestionEvents := sortedKeys(r.suggestionEvents)

	fmt.Fprintln(w, "# HELP jukebot_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE jukebot_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "jukebot_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP jukebot_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE jukebot_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "jukebot_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP jukebot_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE jukebot_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "jukebot_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP jukebot_auth_resolutions_total Credential resolutions by scheme and outcome")
	fmt.Fprintln(w, "# TYPE jukebot_auth_resolutions_total counter")
	for _, label := range resolutionLabels {
		count := r.resolutionCount[label]
		fmt.Fprintf(w, "jukebot_auth_resolutions_total{scheme=\"%s\",outcome=\"%s\"} %d\n", label.Scheme, label.Outcome, count)
	}

	fmt.Fprintln(w, "# HELP jukebot_session_events_total Session lifecycle events by type")
	fmt.Fprintln(w, "# TYPE jukebot_session_events_total counter")
	for _, event := range sessionEvents {
		value := r.sessionEvents[event]
		fmt.Fprintf(w, "jukebot_session_events_total{event=\"%s\"} %d\n", event, value)
	}

	fmt.Fprintln(w, "# HELP jukebot_active_sessions Current number of live sessions")
	fmt.Fprintln(w, "# TYPE jukebot_active_sessions gauge")
	fmt.Fprintf(w, "jukebot_active_sessions %d\n", r.activeSessions.Load())

	fmt.Fprintln(w, "# HELP jukebot_local_token_events_total Local request token events by type")
	fmt.Fprintln(w, "# TYPE jukebot_local_token_events_total counter")
	for _, event := range localTokenEvents {
		value := r.localTokenEvents[event]
		fmt.Fprintf(w, "jukebot_local_token_events_total{event=\"%s\"} %d\n", event, value)
	}

	if r.localTokenGauge != nil {
		fmt.Fprintln(w, "# HELP jukebot_local_tokens_outstanding Local request grants not yet consumed")
		fmt.Fprintln(w, "# TYPE jukebot_local_tokens_outstanding gauge")
		fmt.Fprintf(w, "jukebot_local_tokens_outstanding %d\n", r.localTokenGauge())
	}

	fmt.Fprintln(w, "# HELP jukebot_throttle_hits_total Requests rejected by rate limiting, by scope")
	fmt.Fprintln(w, "# TYPE jukebot_throttle_hits_total counter")
	for _, scope := range throttleScopes {
		value := r.throttleHits[scope]
		fmt.Fprintf(w, "jukebot_throttle_hits_total{scope=\"%s\"} %d\n", scope, value)
	}

	fmt.Fprintln(w, "# HELP jukebot_suggestion_events_total Suggestion lifecycle events by status")
	fmt.Fprintln(w, "# TYPE jukebot_suggestion_events_total counter")
	for _, event := range suggestionEvents {
		value := r.suggestionEvents[event]
		fmt.Fprintf(w, "jukebot_suggestion_events_total{status=\"%s\"} %d\n", event, value)
	}

	fmt.Fprintln(w, "# HELP jukebot_track_plays_total Total track playback events")
	fmt.Fprintln(w, "# TYPE jukebot_track_plays_total counter")
	fmt.Fprintf(w, "jukebot_track_plays_total %d\n", r.trackPlays.Load())
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedResolutionLabels() []ResolutionLabel {
	labels := make([]ResolutionLabel, 0, len(r.resolutionCount))
	for label := range r.resolutionCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Scheme != labels[j].Scheme {
			return labels[i].Scheme < labels[j].Scheme
		}
		return labels[i].Outcome < labels[j].Outcome
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 1 && digitCount == len(segment)
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveResolution records a resolution outcome on the default recorder.
func ObserveResolution(scheme, outcome string) {
	defaultRecorder.ObserveResolution(scheme, outcome)
}

// SessionOpened increments counters on the default recorder.
func SessionOpened() {
	defaultRecorder.SessionOpened()
}

// SessionClosed decrements the active session gauge on the default recorder.
func SessionClosed() {
	defaultRecorder.SessionClosed()
}

// ObserveLocalToken records a local token event on the default recorder.
func ObserveLocalToken(event string) {
	defaultRecorder.ObserveLocalToken(event)
}

// ObserveThrottleHit records a rate-limit rejection on the default recorder.
func ObserveThrottleHit(scope string) {
	defaultRecorder.ObserveThrottleHit(scope)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
