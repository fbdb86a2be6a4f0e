// Package gemini is the client for the streaming completion endpoint behind
// the portfolio chat.
//
// Requests go straight to the REST endpoint
//
//	POST {base}/models/{model}:streamGenerateContent?alt=sse
//
// so that the caller can read the raw event stream incrementally. The
// official GenAI SDK supplies the request/response types and is used for the
// background health probe.
package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/MohitGoyal09/portfolio/internal/chat"
	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash-lite"

	// CredentialEnv names the environment variable holding the API key.
	CredentialEnv = "GEMINI_API_KEY"

	// PrimingAck is the model turn that follows the system prompt.
	PrimingAck = "I understand. I will act as your portfolio assistant."

	defaultResponseHeaderTimeout = 15 * time.Second
	maxErrorBodyBytes            = 64 << 10
)

// DefaultSystemPrompt is used when no prompt override is configured.
//
//go:embed prompt.txt
var DefaultSystemPrompt string

// Client issues streaming completion calls. A Client built without an API key
// is valid: every Stream call then fails with *apierr.ConfigError.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string

	headerTimeout time.Duration
	httpClient    *http.Client
	sdk           *genai.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for local mocks and tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithSystemPrompt replaces the priming instructions.
func WithSystemPrompt(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.systemPrompt = p
		}
	}
}

// WithResponseHeaderTimeout bounds the wait for the upstream's response
// headers. The streamed body itself is not bounded.
func WithResponseHeaderTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.headerTimeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for completion calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, errors.New("gemini: context must not be nil")
	}

	c := &Client{
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		model:         DefaultModel,
		systemPrompt:  DefaultSystemPrompt,
		headerTimeout: defaultResponseHeaderTimeout,
	}
	for _, o := range opts {
		o(c)
	}

	if c.httpClient == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = c.headerTimeout
		c.httpClient = &http.Client{Transport: tr}
	}

	if c.apiKey == "" {
		return c, nil
	}

	base, ver := splitBaseURLAndVersion(c.baseURL)
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: base, APIVersion: ver},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: sdk client: %w", err)
	}
	c.sdk = sdk

	return c, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// SystemPrompt returns the priming instructions.
func (c *Client) SystemPrompt() string { return c.systemPrompt }

// HealthCheck lists one model through the SDK to prove the key and endpoint
// work.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.sdk == nil {
		return &apierr.ConfigError{Missing: CredentialEnv}
	}
	if _, err := c.sdk.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		return fmt.Errorf("gemini: health check: %w", fromSDKError(err))
	}
	return nil
}

// Stream opens one streaming completion call for req. On success the caller
// owns the returned body and must close it. Failures are one of
// *apierr.ConfigError, *apierr.TransportError or *apierr.UpstreamError.
func (c *Client) Stream(ctx context.Context, req *chat.Request) (io.ReadCloser, error) {
	if !c.Configured() {
		return nil, &apierr.ConfigError{Missing: CredentialEnv}
	}

	payload, err := json.Marshal(newStreamRequest(c.Conversation(req), GenerationConfig()))
	if err != nil {
		return nil, &apierr.InternalError{Err: fmt.Errorf("gemini: encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.streamURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &apierr.InternalError{Err: fmt.Errorf("gemini: build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &apierr.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, upstreamError(resp.StatusCode, body, resp.Header.Get("Retry-After"), time.Now())
	}

	return resp.Body, nil
}

func (c *Client) streamURL() string {
	return strings.TrimRight(c.baseURL, "/") + "/models/" + url.PathEscape(c.model) + ":streamGenerateContent?alt=sse"
}

// Conversation assembles the upstream turns for req using the client's
// system prompt.
func (c *Client) Conversation(req *chat.Request) []*genai.Content {
	return BuildConversation(c.systemPrompt, req)
}

// BuildConversation returns the priming user turn, the priming model
// acknowledgement, the client history verbatim and finally the message as a
// user turn.
func BuildConversation(systemPrompt string, req *chat.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+3)
	contents = append(contents,
		genai.NewContentFromText(systemPrompt, genai.RoleUser),
		genai.NewContentFromText(PrimingAck, genai.RoleModel),
	)

	for _, turn := range req.History {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			text := ""
			if p.Text != nil {
				text = *p.Text
			}
			parts = append(parts, genai.NewPartFromText(text))
		}
		contents = append(contents, &genai.Content{Role: turn.Role, Parts: parts})
	}

	return append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))
}

// GenerationConfig returns the fixed sampling parameters.
func GenerationConfig() *genai.GenerationConfig {
	return &genai.GenerationConfig{
		MaxOutputTokens: 512,
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
	}
}

// The SDK types drop empty text parts (omitempty); the wire types below keep
// them so history is forwarded verbatim.
type (
	wirePart struct {
		Text string `json:"text"`
	}
	wireContent struct {
		Role  string     `json:"role"`
		Parts []wirePart `json:"parts"`
	}
	streamRequest struct {
		Contents         []wireContent           `json:"contents"`
		GenerationConfig *genai.GenerationConfig `json:"generationConfig"`
	}
)

func newStreamRequest(contents []*genai.Content, cfg *genai.GenerationConfig) streamRequest {
	out := streamRequest{Contents: make([]wireContent, 0, len(contents)), GenerationConfig: cfg}
	for _, c := range contents {
		wc := wireContent{Role: c.Role, Parts: make([]wirePart, 0, len(c.Parts))}
		for _, p := range c.Parts {
			if p == nil {
				continue
			}
			wc.Parts = append(wc.Parts, wirePart{Text: p.Text})
		}
		out.Contents = append(out.Contents, wc)
	}
	return out
}

// upstreamError builds the error for a non-2xx answer. The message is taken
// from error.message, then message, then the raw body, then the status.
func upstreamError(status int, body []byte, retryAfter string, now time.Time) *apierr.UpstreamError {
	ue := &apierr.UpstreamError{
		Status:  status,
		Message: fmt.Sprintf("Gemini API error: %d", status),
	}

	if len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			ue.Details = parsed
			if msg := errorMessage(parsed); msg != "" {
				ue.Message = msg
			}
		} else {
			ue.Message = string(body)
		}
	}

	if status == http.StatusTooManyRequests {
		ue.RetryAfter = parseRetryAfter(retryAfter, now)
	}
	return ue
}

func errorMessage(parsed any) string {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	if inner, ok := obj["error"].(map[string]any); ok {
		if msg, ok := inner["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := obj["message"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

// parseRetryAfter accepts delta-seconds or an HTTP date and falls back to
// apierr.DefaultRetryAfter.
func parseRetryAfter(v string, now time.Time) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return apierr.DefaultRetryAfter
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	if t, err := http.ParseTime(v); err == nil {
		if secs := int(t.Sub(now).Round(time.Second) / time.Second); secs > 0 {
			return secs
		}
	}
	return apierr.DefaultRetryAfter
}

func fromSDKError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apierr.UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
	}
	return &apierr.TransportError{Err: err}
}

// splitBaseURLAndVersion separates a trailing API version segment
// ("…/v1beta") from the base URL, as the SDK wants them apart.
func splitBaseURLAndVersion(raw string) (baseURL string, apiVersion string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		base := u.String()
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base, ""
	}

	parts := strings.Split(path, "/")
	if last := parts[len(parts)-1]; looksLikeAPIVersion(last) {
		apiVersion = last
		parts = parts[:len(parts)-1]
	}

	u.Path = "/" + strings.Join(parts, "/")
	if u.Path == "/" {
		u.Path = ""
	}

	baseURL = u.String()
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL, apiVersion
}

func looksLikeAPIVersion(s string) bool {
	if !strings.HasPrefix(s, "v") || len(s) < 2 {
		return false
	}
	return s[1] >= '0' && s[1] <= '9'
}
