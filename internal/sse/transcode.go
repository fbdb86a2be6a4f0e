package sse

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/genai"
)

// Outcome describes how a transcoded stream ended.
type Outcome string

const (
	// OutcomeDone means the upstream ended cleanly and the done marker was sent.
	OutcomeDone Outcome = "done"
	// OutcomeUpstreamError means reading the upstream failed and the error
	// marker was sent.
	OutcomeUpstreamError Outcome = "upstream_error"
	// OutcomeClientGone means writing to the client failed; nothing more was sent.
	OutcomeClientGone Outcome = "client_gone"
)

// Result summarises a finished stream.
type Result struct {
	Outcome     Outcome
	TextEvents  int
	ParseErrors int
	Chars       int
	// Err is the upstream read error or client write error, if any.
	Err error
}

// Options tunes Transcode. All fields are optional.
type Options struct {
	Logger *slog.Logger
	// OnParseError is called for every upstream event that could not be parsed.
	OnParseError func(err error)
}

// Transcode reads completion events from src and re-emits their text deltas
// on dst in arrival order.
//
// An event that fails to parse is logged and skipped. A read failure emits a
// single error event; a clean end emits a single done event. Transcode
// returns as soon as a write to dst fails so the caller can release src.
func Transcode(dst *Writer, src io.Reader, opts Options) Result {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var res Result
	dec := NewDecoder(src)

	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if werr := dst.Done(); werr != nil {
					res.Outcome, res.Err = OutcomeClientGone, werr
					return res
				}
				res.Outcome = OutcomeDone
				return res
			}

			log.Warn("stream_read_error", slog.String("error", err.Error()))
			res.Err = err
			if werr := dst.Error(StreamErrorMessage); werr != nil {
				res.Outcome = OutcomeClientGone
				return res
			}
			res.Outcome = OutcomeUpstreamError
			return res
		}

		text, err := ExtractText([]byte(ev.Data))
		if err != nil {
			res.ParseErrors++
			log.Warn("stream_parse_error",
				slog.String("error", err.Error()),
				slog.Int("data_bytes", len(ev.Data)),
			)
			if opts.OnParseError != nil {
				opts.OnParseError(err)
			}
			continue
		}
		if text == "" {
			continue
		}

		if werr := dst.Text(text); werr != nil {
			res.Outcome, res.Err = OutcomeClientGone, werr
			return res
		}
		res.TextEvents++
		res.Chars += len(text)
	}
}

// ExtractText returns candidates[0].content.parts[0].text of a streamed
// completion chunk, or "" when the path is absent.
func ExtractText(data []byte) (string, error) {
	var chunk genai.GenerateContentResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Candidates) == 0 {
		return "", nil
	}
	c := chunk.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return "", nil
	}
	return c.Content.Parts[0].Text, nil
}
