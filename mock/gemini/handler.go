package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// fakeWords is a pool of words used to build mock answers.
var fakeWords = []string{
	"Mohit", "builds", "retrieval", "pipelines", "and", "fine-tunes", "small",
	"language", "models", "for", "production", "search", "agents", "with",
	"PyTorch", "FastAPI", "and", "Go", "services", "that", "stream", "answers",
}

// mockModels is what the model list endpoint reports.
var mockModels = []map[string]any{
	{"name": "models/gemini-2.0-flash-lite", "displayName": "Gemini 2.0 Flash-Lite"},
	{"name": "models/gemini-2.0-flash", "displayName": "Gemini 2.0 Flash"},
}

// newHandler returns an http.Handler simulating the Gemini REST API:
//
//	POST {base}/models/{model}:streamGenerateContent?alt=sse
//	GET  {base}/models
//
// where {base} is /v1beta.
func newHandler(cfg Config, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1beta/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": mockModels})
	})

	mux.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasSuffix(path, ":streamGenerateContent") {
			writeGeminiError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("mock: unknown path %s", path))
			return
		}
		if r.Method != http.MethodPost {
			writeGeminiError(w, http.StatusMethodNotAllowed, "INVALID_ARGUMENT", "method not allowed")
			return
		}
		if r.Header.Get("x-goog-api-key") == "" && r.URL.Query().Get("key") == "" {
			writeGeminiError(w, http.StatusForbidden, "PERMISSION_DENIED", "Method doesn't allow unregistered callers.")
			return
		}

		applyLatency(cfg.LatencyMS)
		switch {
		case cfg.Force429 || r.Header.Get("X-Mock-Status") == "429":
			w.Header().Set("Retry-After", "30")
			writeGeminiError(w, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "Resource has been exhausted (e.g. check quota).")
			return
		case shouldError(cfg.ErrorRate):
			writeGeminiError(w, http.StatusInternalServerError, "INTERNAL", "mock internal error")
			return
		}

		if err := json.NewDecoder(r.Body).Decode(&struct{}{}); err != nil {
			writeGeminiError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid JSON payload received.")
			return
		}

		model := extractModel(path)
		log.Info("stream", slog.String("model", model), slog.Int("words", cfg.StreamWords))
		streamAnswer(w, r, cfg, model)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeGeminiError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("mock: unknown path %s", r.URL.Path))
	})

	return mux
}

// streamAnswer writes one SSE event per word, CRLF-delimited like the real
// API, and stops early when the client goes away.
func streamAnswer(w http.ResponseWriter, r *http.Request, cfg Config, model string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	words := fakeAnswer(cfg.StreamWords)
	for i, word := range words {
		text := word
		if i < len(words)-1 {
			text += " "
		}
		chunk := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": text}},
				},
				"index": 0,
			}},
			"modelVersion": model,
		}
		if i == len(words)-1 {
			chunk["candidates"].([]map[string]any)[0]["finishReason"] = "STOP"
		}
		b, _ := json.Marshal(chunk)
		if _, err := fmt.Fprintf(w, "data: %s\r\n\r\n", b); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}

		if cfg.ChunkDelayMS > 0 && i < len(words)-1 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Duration(cfg.ChunkDelayMS) * time.Millisecond):
			}
		}
	}
}

// fakeAnswer returns n words ending with a full stop.
func fakeAnswer(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fakeWords[rand.IntN(len(fakeWords))]
	}
	words[n-1] += "."
	return words
}

func applyLatency(ms int) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

func shouldError(rate float64) bool {
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGeminiError writes the Google API error envelope.
func writeGeminiError(w http.ResponseWriter, code int, status, msg string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
			"status":  status,
		},
	})
}

// extractModel pulls the model name out of a path like
// /v1beta/models/gemini-2.0-flash-lite:streamGenerateContent
func extractModel(path string) string {
	const prefix = "/v1beta/models/"
	if idx := strings.Index(path, prefix); idx >= 0 {
		rest := path[idx+len(prefix):]
		if col := strings.Index(rest, ":"); col >= 0 {
			return rest[:col]
		}
		return rest
	}
	return "gemini-2.0-flash-lite"
}
