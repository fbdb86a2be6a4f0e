package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// StreamErrorMessage is the text of the terminal error event.
const StreamErrorMessage = "Stream error occurred"

const doneFrame = "data: {\"done\": true}\n\n"

// Writer emits outbound events framed as "data: <json>\n\n". Every event is
// flushed immediately; a failed write or flush means the client is gone.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps the response stream writer.
func NewWriter(w *bufio.Writer) *Writer {
	return &Writer{w: w}
}

type (
	textEvent struct {
		Text string `json:"text"`
	}
	errorEvent struct {
		Error string `json:"error"`
	}
)

// Text emits a content delta.
func (w *Writer) Text(s string) error {
	return w.writeJSON(textEvent{Text: s})
}

// Done emits the terminal success marker.
func (w *Writer) Done() error {
	if _, err := w.w.WriteString(doneFrame); err != nil {
		return err
	}
	return w.w.Flush()
}

// Error emits the terminal failure marker.
func (w *Writer) Error(msg string) error {
	return w.writeJSON(errorEvent{Error: msg})
}

func (w *Writer) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.w.Flush()
}
