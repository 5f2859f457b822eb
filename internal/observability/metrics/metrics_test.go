package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestNormalizesPaths(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/subjects/42", 200, 25*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/subjects/97", 200, 25*time.Millisecond)

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `jukebot_http_requests_total{method="GET",path="/api/subjects/:id",status="200"} 2`) {
		t.Fatalf("expected merged normalized counter, got:\n%s", out.String())
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/channels", "/api/channels"},
		{"/api/channels/12", "/api/channels/:id"},
		{"/api/channels/12/tracks", "/api/channels/:id/tracks"},
		{"/api/subjects/42/ban", "/api/subjects/:id/ban"},
		{"/api/channels/", "/api/channels"},
		{"/static/styles.css", "/static/styles.css"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolutionCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveResolution("query-secret", "success")
	recorder.ObserveResolution("query-secret", "success")
	recorder.ObserveResolution("ambient-session", "anonymous")
	recorder.ObserveResolution("", "")

	counts := recorder.ResolutionCounts()
	if counts[ResolutionLabel{Scheme: "query-secret", Outcome: "success"}] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if counts[ResolutionLabel{Scheme: "ambient-session", Outcome: "anonymous"}] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if counts[ResolutionLabel{Scheme: "unknown", Outcome: "unknown"}] != 1 {
		t.Fatalf("expected empty labels to normalize to unknown, got %v", counts)
	}
}

func TestSessionGaugeNeverGoesNegative(t *testing.T) {
	recorder := New()
	recorder.SessionClosed()
	if got := recorder.ActiveSessions(); got != 0 {
		t.Fatalf("expected gauge to stay at zero, got %d", got)
	}
	recorder.SessionOpened()
	recorder.SessionOpened()
	recorder.SessionClosed()
	if got := recorder.ActiveSessions(); got != 1 {
		t.Fatalf("expected one live session, got %d", got)
	}
}

func TestLocalTokenGaugeSampledOnWrite(t *testing.T) {
	recorder := New()

	var out strings.Builder
	recorder.Write(&out)
	if strings.Contains(out.String(), "jukebot_local_tokens_outstanding") {
		t.Fatal("gauge must be omitted until a source is installed")
	}

	recorder.SetLocalTokenSource(func() int { return 3 })
	out.Reset()
	recorder.Write(&out)
	if !strings.Contains(out.String(), "jukebot_local_tokens_outstanding 3") {
		t.Fatalf("expected sampled gauge, got:\n%s", out.String())
	}
}

func TestHandlerContentType(t *testing.T) {
	recorder := New()
	recorder.ObserveThrottleHit("login")

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if got := rec.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), `jukebot_throttle_hits_total{scope="login"} 1`) {
		t.Fatalf("expected throttle counter in output, got:\n%s", rec.Body.String())
	}
}

func TestHTTPMiddlewareCapturesStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected the status to pass through, got %d", rec.Code)
	}

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `jukebot_http_requests_total{method="GET",path="/api/channels",status="418"} 1`) {
		t.Fatalf("expected recorded request, got:\n%s", out.String())
	}
}
