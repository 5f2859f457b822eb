package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"jukebot/internal/auth"
	"jukebot/internal/observability/metrics"
)

// InternalClient issues self-directed requests from trusted in-process code,
// typically server-rendered pages acting on behalf of their visitor. Each
// call grants a single-use local request token for the subject and carries
// the subject ID as the local-request credential, so the API sees an
// authenticated request without any cookie or secret changing hands. The
// grant is consumed by the resolver during dispatch and cannot be replayed.
type InternalClient struct {
	handler  http.Handler
	resolver *auth.Resolver
}

// NewInternalClient wraps the API handler chain for in-process dispatch.
func NewInternalClient(handler http.Handler, resolver *auth.Resolver) *InternalClient {
	return &InternalClient{handler: handler, resolver: resolver}
}

// responseBuffer captures an in-process response without a network hop.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header), status: http.StatusOK}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *responseBuffer) WriteHeader(status int) {
	b.status = status
}

// Do dispatches a self-directed request on behalf of subjectID and returns
// the response status and body.
func (c *InternalClient) Do(ctx context.Context, subjectID int64, method, path string, body io.Reader) (int, []byte, error) {
	parsed, err := url.Parse(path)
	if err != nil {
		return 0, nil, fmt.Errorf("parse internal path %q: %w", path, err)
	}
	query := parsed.Query()
	query.Set(auth.ParamLocalUser, fmt.Sprintf("%d", subjectID))
	parsed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("build internal request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.resolver.GrantLocalToken(subjectID)
	metrics.ObserveLocalToken("grant")
	buffer := newResponseBuffer()
	c.handler.ServeHTTP(buffer, req)
	return buffer.status, buffer.body.Bytes(), nil
}

// GetJSON issues an internal GET and decodes the JSON response into dest.
func (c *InternalClient) GetJSON(ctx context.Context, subjectID int64, path string, dest interface{}) error {
	status, payload, err := c.Do(ctx, subjectID, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("internal request %s returned status %d", path, status)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode internal response for %s: %w", path, err)
	}
	return nil
}
