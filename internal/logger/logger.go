// Package logger implements a non-blocking, batched chat request logger.
//
// Entries are written to an internal buffered channel and flushed in batches
// by a background goroutine, so logging never blocks a streaming response.
// If the channel fills up, new entries are dropped and counted in
// DroppedLogs.
package logger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	channelBuffer = 10_000
	batchSize     = 100
	flushInterval = time.Second
)

// ChatLog describes one finished chat request.
type ChatLog struct {
	ID           uuid.UUID
	ClientID     string
	Model        string
	Status       int
	Outcome      string
	ErrorKind    string
	MessageChars int
	HistoryTurns int
	TextEvents   int
	OutputChars  int
	FirstByte    time.Duration
	Latency      time.Duration
	CreatedAt    time.Time
}

type Logger struct {
	ch        chan ChatLog
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	droppedLogs int64

	baseCtx context.Context
	log     *slog.Logger
}

func New(ctx context.Context, slogger *slog.Logger) (*Logger, error) {
	if ctx == nil {
		return nil, errors.New("logger: context must not be nil")
	}
	if slogger == nil {
		slogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	l := &Logger{
		ch:      make(chan ChatLog, channelBuffer),
		done:    make(chan struct{}),
		baseCtx: ctx,
		log:     slogger,
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

// Log enqueues entry. A zero ID is replaced with a fresh one.
func (l *Logger) Log(entry ChatLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	select {
	case l.ch <- entry:
	default:
		atomic.AddInt64(&l.droppedLogs, 1)
	}
}

func (l *Logger) DroppedLogs() int64 {
	return atomic.LoadInt64(&l.droppedLogs)
}

// Close flushes pending entries and stops the background goroutine.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return nil
}

func (l *Logger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]ChatLog, 0, batchSize)

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			attrs := []slog.Attr{
				slog.String("id", e.ID.String()),
				slog.String("client", e.ClientID),
				slog.String("model", e.Model),
				slog.Int("status", e.Status),
				slog.String("outcome", e.Outcome),
				slog.Int("message_chars", e.MessageChars),
				slog.Int("history_turns", e.HistoryTurns),
				slog.Int("text_events", e.TextEvents),
				slog.Int("output_chars", e.OutputChars),
				slog.Int64("first_byte_ms", e.FirstByte.Milliseconds()),
				slog.Int64("latency_ms", e.Latency.Milliseconds()),
				slog.Time("created_at", normalizeTime(e.CreatedAt)),
			}
			if e.ErrorKind != "" {
				attrs = append(attrs, slog.String("error_kind", e.ErrorKind))
			}
			l.log.LogAttrs(ctx, slog.LevelInfo, "chat_request", attrs...)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-l.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush(l.baseCtx)
			}

		case <-ticker.C:
			flush(l.baseCtx)

		case <-l.done:
			for {
				select {
				case entry := <-l.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush(l.baseCtx)
					}
				default:
					flush(l.baseCtx)
					return
				}
			}
		}
	}
}

// NewSlog builds the process-wide JSON logger for a level name. Unknown
// names select info.
func NewSlog(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     l,
		AddSource: l == slog.LevelDebug,
	}))
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
