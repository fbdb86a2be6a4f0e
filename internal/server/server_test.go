package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/MohitGoyal09/portfolio/internal/chat"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
)

// --- helpers ---

// stubUpstream serves a canned event stream or error.
type stubUpstream struct {
	configured bool
	body       string
	err        error
	healthErr  error

	// open, when set, replaces body.
	open func(ctx context.Context) io.ReadCloser

	calls atomic.Int32
}

func (u *stubUpstream) Configured() bool { return u.configured }
func (u *stubUpstream) Model() string    { return "stub-model" }

func (u *stubUpstream) Stream(ctx context.Context, _ *chat.Request) (io.ReadCloser, error) {
	u.calls.Add(1)
	if u.err != nil {
		return nil, u.err
	}
	if u.open != nil {
		return u.open(ctx), nil
	}
	return io.NopCloser(strings.NewReader(u.body)), nil
}

func (u *stubUpstream) HealthCheck(context.Context) error { return u.healthErr }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serve starts a Server on an in-memory listener and returns an HTTP client
// bound to it.
func serve(t *testing.T, opts Options) (*Server, *http.Client) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewFixedWindow(ratelimit.Config{})
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s := New(ctx, opts)

	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = s.Serve(ln)
	}()

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}

	t.Cleanup(func() {
		cancel()
		s.Close()
		_ = ln.Close()
	})
	return s, client
}

func do(t *testing.T, client *http.Client, method, path string, body []byte, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, "http://test"+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(readBody(t, resp)), &m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

// --- middleware ---

func TestRecovery_WritesGenericError(t *testing.T) {
	h := recovery(func(*fasthttp.RequestCtx) { panic("boom") })

	var ctx fasthttp.RequestCtx
	h(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Errorf("status = %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Body()); got != `{"error":"Internal server error"}` {
		t.Errorf("body = %s", got)
	}
}

func TestCORS_AllowList(t *testing.T) {
	h := corsHandler([]string{"https://mohitgoyal.dev", "http://localhost:3000"})(func(*fasthttp.RequestCtx) {})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Origin", "http://localhost:3000")
	h(&ctx)
	if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")); got != "http://localhost:3000" {
		t.Errorf("listed origin echoed as %q", got)
	}

	var other fasthttp.RequestCtx
	other.Request.Header.Set("Origin", "https://evil.example")
	h(&other)
	if got := string(other.Response.Header.Peek("Access-Control-Allow-Origin")); got != "https://mohitgoyal.dev" {
		t.Errorf("unlisted origin got %q", got)
	}
}

func TestServer_Preflight(t *testing.T) {
	_, client := serve(t, Options{Upstream: &stubUpstream{configured: true}})

	resp := do(t, client, http.MethodOptions, "/api/chat", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestServer_RequestIDAndSecurityHeaders(t *testing.T) {
	_, client := serve(t, Options{Upstream: &stubUpstream{configured: true}})

	resp := do(t, client, http.MethodGet, "/api/technologies", nil, "X-Request-ID", "req-123")
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") != "req-123" {
		t.Errorf("request id = %q", resp.Header.Get("X-Request-ID"))
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if resp.Header.Get("X-Response-Time") == "" {
		t.Error("X-Response-Time missing")
	}
}

func TestServer_NotFound(t *testing.T) {
	_, client := serve(t, Options{Upstream: &stubUpstream{configured: true}})

	resp := do(t, client, http.MethodGet, "/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body := decodeJSON(t, resp); body["error"] != "Not found" {
		t.Errorf("body = %v", body)
	}
}
