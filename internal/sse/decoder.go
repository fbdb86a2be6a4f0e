// Package sse reads and writes text/event-stream bodies.
//
// Decoder pulls events off an upstream body one line at a time, so each event
// is available as soon as its terminating blank line arrives. Writer frames
// outbound events and flushes after every one. Transcode joins the two for
// the chat endpoint.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const (
	// MaxLineBytes bounds a single line of the upstream stream.
	MaxLineBytes = 1 << 20
	// MaxEventBytes bounds the accumulated data of a single event.
	MaxEventBytes = 4 << 20
)

var (
	// ErrLineTooLong is returned when a line exceeds MaxLineBytes.
	ErrLineTooLong = errors.New("sse: line too long")
	// ErrEventTooLarge is returned when an event's data exceeds MaxEventBytes.
	ErrEventTooLarge = errors.New("sse: event too large")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Event is one dispatched server-sent event.
type Event struct {
	Type string
	ID   string
	Data string
}

// Decoder parses a server-sent event stream incrementally.
//
// Lines may end in LF, CR or CRLF. Comment lines and unknown fields are
// ignored. Multiple data lines are joined with "\n".
type Decoder struct {
	r       *bufio.Reader
	started bool
	skipLF  bool // previous line ended in CR

	data    bytes.Buffer
	hasData bool
	typ     string
	id      string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 32<<10)}
}

// Next blocks until the next complete event is available. It returns io.EOF
// once the stream ends cleanly. An event whose data lines were received but
// whose blank line was cut off by the end of the stream is still returned.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) > 0 {
					if ferr := d.field(line); ferr != nil {
						return Event{}, ferr
					}
				}
				if d.hasData {
					return d.dispatch(), nil
				}
			}
			return Event{}, err
		}

		if len(line) == 0 {
			if d.hasData {
				return d.dispatch(), nil
			}
			d.typ = ""
			continue
		}

		if err := d.field(line); err != nil {
			return Event{}, err
		}
	}
}

func (d *Decoder) dispatch() Event {
	ev := Event{Type: d.typ, ID: d.id, Data: d.data.String()}
	d.data.Reset()
	d.hasData = false
	d.typ = ""
	return ev
}

func (d *Decoder) field(line []byte) error {
	if line[0] == ':' {
		return nil
	}

	name, value := line, []byte(nil)
	if i := bytes.IndexByte(line, ':'); i >= 0 {
		name, value = line[:i], line[i+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
	}

	switch string(name) {
	case "data":
		if d.hasData {
			d.data.WriteByte('\n')
		}
		d.data.Write(value)
		d.hasData = true
		if d.data.Len() > MaxEventBytes {
			return ErrEventTooLarge
		}
	case "event":
		d.typ = string(value)
	case "id":
		if bytes.IndexByte(value, 0) < 0 {
			d.id = string(value)
		}
	}
	return nil
}

// readLine returns the next line without its terminator. At end of stream it
// returns the unterminated remainder together with io.EOF.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return line, err
		}

		if !d.started {
			d.started = true
			if b == utf8BOM[0] {
				if rest, perr := d.r.Peek(2); perr == nil && bytes.Equal(rest, utf8BOM[1:]) {
					_, _ = d.r.Discard(2)
					continue
				}
			}
		}

		if d.skipLF {
			d.skipLF = false
			if b == '\n' {
				continue
			}
		}

		switch b {
		case '\n':
			return line, nil
		case '\r':
			d.skipLF = true
			return line, nil
		}

		if len(line) >= MaxLineBytes {
			return nil, ErrLineTooLong
		}
		line = append(line, b)
	}
}
