package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/MohitGoyal09/portfolio/internal/gemini"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

const helloBody = `{"message":"hello"}`

func chunk(text string) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\r\n\r\n", text)
}

func postChat(t *testing.T, client *http.Client, body string, headers ...string) *http.Response {
	t.Helper()
	return do(t, client, http.MethodPost, "/api/chat", []byte(body), headers...)
}

func TestChat_StreamsTextThenDone(t *testing.T) {
	up := &stubUpstream{configured: true, body: chunk("Hello") + chunk(" world")}
	_, client := serve(t, Options{Upstream: up})

	resp := postChat(t, client, helloBody, "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("cache-control = %q", cc)
	}
	if resp.Header.Get("X-RateLimit-Limit") != "20" || resp.Header.Get("X-RateLimit-Remaining") != "19" {
		t.Errorf("rate limit headers = %q/%q",
			resp.Header.Get("X-RateLimit-Limit"), resp.Header.Get("X-RateLimit-Remaining"))
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	want := "data: {\"text\":\"Hello\"}\n\n" +
		"data: {\"text\":\" world\"}\n\n" +
		"data: {\"done\": true}\n\n"
	if got := readBody(t, resp); got != want {
		t.Errorf("body =\n%q\nwant\n%q", got, want)
	}
}

func TestChat_MalformedEventIsSkipped(t *testing.T) {
	up := &stubUpstream{configured: true, body: chunk("a") + "data: {not json\n\n" + chunk("b")}
	_, client := serve(t, Options{Upstream: up})

	got := readBody(t, postChat(t, client, helloBody))
	want := "data: {\"text\":\"a\"}\n\ndata: {\"text\":\"b\"}\n\ndata: {\"done\": true}\n\n"
	if got != want {
		t.Errorf("body = %q", got)
	}
}

func TestChat_ReadFailureEmitsSingleError(t *testing.T) {
	up := &stubUpstream{
		configured: true,
		open: func(context.Context) io.ReadCloser {
			return io.NopCloser(io.MultiReader(
				strings.NewReader(chunk("partial")),
				iotest.ErrReader(errors.New("connection reset")),
			))
		},
	}
	_, client := serve(t, Options{Upstream: up})

	got := readBody(t, postChat(t, client, helloBody))
	want := "data: {\"text\":\"partial\"}\n\ndata: {\"error\":\"Stream error occurred\"}\n\n"
	if got != want {
		t.Errorf("body = %q", got)
	}
}

// stallingBody blocks until the upstream context is cancelled.
type stallingBody struct {
	ctx    context.Context
	closed chan struct{}
}

func (b *stallingBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *stallingBody) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestChat_IdleTimeoutAbortsStream(t *testing.T) {
	closed := make(chan struct{})
	up := &stubUpstream{
		configured: true,
		open: func(ctx context.Context) io.ReadCloser {
			return &stallingBody{ctx: ctx, closed: closed}
		},
	}
	_, client := serve(t, Options{Upstream: up, StreamIdleTimeout: 50 * time.Millisecond})

	got := readBody(t, postChat(t, client, helloBody))
	if got != "data: {\"error\":\"Stream error occurred\"}\n\n" {
		t.Errorf("body = %q", got)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Error("upstream body was not closed")
	}
}

// pipeBody is an upstream body fed by the test.
type pipeBody struct {
	*io.PipeReader
	closed chan struct{}
}

func (b *pipeBody) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return b.PipeReader.Close()
}

func TestChat_ClientDisconnectClosesUpstream(t *testing.T) {
	pr, pw := io.Pipe()
	body := &pipeBody{PipeReader: pr, closed: make(chan struct{})}
	up := &stubUpstream{
		configured: true,
		open:       func(context.Context) io.ReadCloser { return body },
	}
	_, client := serve(t, Options{Upstream: up})

	go func() { _, _ = io.WriteString(pw, chunk("first")) }()

	resp := postChat(t, client, helloBody)
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.Contains(line, "first") {
		t.Fatalf("first line = %q, %v", line, err)
	}
	_ = resp.Body.Close()

	// Keep the upstream talking until the server notices the client is gone.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-body.closed:
			return
		case <-deadline:
			t.Fatal("upstream body still open after client disconnect")
		case <-time.After(10 * time.Millisecond):
			go func() { _, _ = io.WriteString(pw, chunk("more")) }()
		}
	}
}

func TestChat_RateLimited(t *testing.T) {
	up := &stubUpstream{configured: true, body: chunk("ok")}
	limiter := ratelimit.NewFixedWindow(ratelimit.Config{Limit: 20, Window: time.Minute})
	_, client := serve(t, Options{Upstream: up, Limiter: limiter})

	for i := 0; i < 20; i++ {
		resp := postChat(t, client, helloBody, "X-Real-IP", "198.51.100.1")
		_ = readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, resp.StatusCode)
		}
	}

	resp := postChat(t, client, helloBody, "X-Real-IP", "198.51.100.1")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("21st request: status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" || resp.Header.Get("X-RateLimit-Limit") != "20" {
		t.Errorf("rate limit headers = %v", resp.Header)
	}
	if resp.Header.Get("Retry-After") != "60" || resp.Header.Get("X-RateLimit-Reset") == "" {
		t.Errorf("retry headers = %q/%q", resp.Header.Get("Retry-After"), resp.Header.Get("X-RateLimit-Reset"))
	}
	body := decodeJSON(t, resp)
	if body["error"] != apierr.MsgRateLimited || body["retryAfter"] != float64(60) {
		t.Errorf("body = %v", body)
	}
	if n := up.calls.Load(); n != 20 {
		t.Errorf("upstream calls = %d, want 20", n)
	}

	// Another client has its own budget.
	other := postChat(t, client, helloBody, "X-Real-IP", "198.51.100.2")
	_ = readBody(t, other)
	if other.StatusCode != http.StatusOK {
		t.Errorf("other client status = %d", other.StatusCode)
	}
}

func TestChat_NotConfigured(t *testing.T) {
	up := &stubUpstream{configured: false}
	_, client := serve(t, Options{Upstream: up})

	resp := postChat(t, client, helloBody)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decodeJSON(t, resp); body["error"] != apierr.MsgNotConfigured {
		t.Errorf("body = %v", body)
	}
	if up.calls.Load() != 0 {
		t.Error("upstream must not be called without a credential")
	}
}

func TestChat_ValidationFailure(t *testing.T) {
	up := &stubUpstream{configured: true}
	_, client := serve(t, Options{Upstream: up})

	cases := map[string]string{
		"empty message": `{"message":""}`,
		"long message":  `{"message":"` + strings.Repeat("x", 501) + `"}`,
		"bad role":      `{"message":"hi","history":[{"role":"system","parts":[{"text":"x"}]}]}`,
		"malformed":     `{"message":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postChat(t, client, body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			got := decodeJSON(t, resp)
			if got["error"] != apierr.MsgInvalidRequest {
				t.Errorf("error = %v", got["error"])
			}
			if d, _ := got["details"].([]any); len(d) == 0 {
				t.Errorf("details missing: %v", got)
			}
		})
	}
	if up.calls.Load() != 0 {
		t.Error("upstream must not be called for invalid requests")
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	_, client := serve(t, Options{Upstream: &stubUpstream{configured: true}})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		resp := do(t, client, method, "/api/chat", nil)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d", method, resp.StatusCode)
		}
		if body := decodeJSON(t, resp); body["error"] != apierr.MsgMethodNotAllowed {
			t.Errorf("%s: body = %v", method, body)
		}
	}
}

func TestChat_TransportFailure(t *testing.T) {
	up := &stubUpstream{configured: true, err: &apierr.TransportError{Err: errors.New("dial tcp: refused")}}
	_, client := serve(t, Options{Upstream: up})

	resp := postChat(t, client, helloBody)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decodeJSON(t, resp); body["error"] != apierr.MsgUpstreamUnreachable {
		t.Errorf("body = %v", body)
	}
}

func TestChat_CircuitOpens(t *testing.T) {
	up := &stubUpstream{configured: true, err: &apierr.UpstreamError{Status: 503, Message: "overloaded"}}
	_, client := serve(t, Options{
		Upstream: up,
		CBConfig: CBConfig{ErrorThreshold: 2, HalfOpenTimeout: time.Minute},
	})

	for i := 0; i < 2; i++ {
		resp := postChat(t, client, helloBody)
		if body := decodeJSON(t, resp); resp.StatusCode != 503 || body["error"] != "overloaded" {
			t.Fatalf("request %d: %d %v", i+1, resp.StatusCode, body)
		}
	}

	resp := postChat(t, client, helloBody)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	body := decodeJSON(t, resp)
	if body["error"] != apierr.MsgCircuitOpen || body["retryAfter"] == nil {
		t.Errorf("body = %v", body)
	}
	if n := up.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

// --- end to end through the Gemini client ---

func geminiServer(t *testing.T, stream http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"models":[]}`)
			return
		}
		stream(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiClient(t *testing.T, srv *httptest.Server) *gemini.Client {
	t.Helper()
	c, err := gemini.New(context.Background(), "test-key", gemini.WithBaseURL(srv.URL+"/v1beta"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChat_Gemini_Stream(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected upstream request %s", r.URL)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, chunk("Mohit builds "))
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, chunk("LLM systems."))
	})
	_, client := serve(t, Options{Upstream: geminiClient(t, srv)})

	got := readBody(t, postChat(t, client, helloBody))
	want := "data: {\"text\":\"Mohit builds \"}\n\ndata: {\"text\":\"LLM systems.\"}\n\ndata: {\"done\": true}\n\n"
	if got != want {
		t.Errorf("body = %q", got)
	}
}

func TestChat_Gemini_RateLimited(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	})
	_, client := serve(t, Options{Upstream: geminiClient(t, srv)})

	resp := postChat(t, client, helloBody)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
	body := decodeJSON(t, resp)
	if body["error"] != apierr.MsgUpstreamRateLimited || body["message"] != "Quota exceeded" || body["retryAfter"] != float64(30) {
		t.Errorf("body = %v", body)
	}
}

func TestChat_Gemini_ErrorPassthrough(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})
	_, client := serve(t, Options{Upstream: geminiClient(t, srv)})

	resp := postChat(t, client, helloBody)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body["error"] != "API key not valid" {
		t.Errorf("error = %v", body["error"])
	}
	details, _ := body["details"].(map[string]any)
	if inner, _ := details["error"].(map[string]any); inner["status"] != "PERMISSION_DENIED" {
		t.Errorf("details = %v", body["details"])
	}
}
