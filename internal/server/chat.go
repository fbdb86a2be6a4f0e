package server

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/valyala/fasthttp"

	"github.com/MohitGoyal09/portfolio/internal/chat"
	"github.com/MohitGoyal09/portfolio/internal/gemini"
	"github.com/MohitGoyal09/portfolio/internal/logger"
	"github.com/MohitGoyal09/portfolio/internal/ratelimit"
	"github.com/MohitGoyal09/portfolio/internal/sse"
	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

const (
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
	outcomeIdleTimeout = "idle_timeout"
)

// handleChat is the POST /api/chat pipeline:
//
//  1. Rate limit by client identity.
//  2. Refuse when the upstream credential is missing.
//  3. Decode and validate the body.
//  4. Refuse while the circuit breaker is open.
//  5. Open the upstream stream and map a non-2xx answer to its error body.
//  6. Transcode the upstream events to the client until either side ends.
func (s *Server) handleChat(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	clientID := ratelimit.ClientID(&ctx.Request.Header)
	reqID, _ := ctx.UserValue(requestIDKey).(string)
	log := s.log.With(slog.String("request_id", reqID), slog.String("client", clientID))

	entry := logger.ChatLog{
		ClientID:  clientID,
		Model:     s.upstream.Model(),
		CreatedAt: start,
	}

	fail := func(outcome string, err error) {
		apierr.WriteError(ctx, err)
		kind := apierr.Kind(err)
		s.metrics.RecordChat(outcome, kind)
		entry.Status = ctx.Response.StatusCode()
		entry.Outcome = outcome
		entry.ErrorKind = kind
		entry.Latency = time.Since(start)
		s.logChat(entry)
	}

	// 1. Admission.
	dec, err := s.limiter.Check(s.baseCtx, clientID)
	if err != nil {
		s.metrics.RecordRateLimitStoreError()
		log.Warn("rate_limit_store_error", slog.String("error", err.Error()))
	}
	if !dec.Allowed {
		s.metrics.RecordRateLimit("denied")
		log.Info("rate_limit_exceeded", slog.Int("limit", dec.Limit))
		fail(outcomeRejected, &apierr.RateLimitError{
			Limit:      dec.Limit,
			Remaining:  0,
			ResetAt:    dec.ResetAt,
			RetryAfter: ratelimit.RetryAfterSeconds(s.limiter),
		})
		return
	}
	s.metrics.RecordRateLimit("allowed")

	// 2. Credential.
	if !s.upstream.Configured() {
		log.Error("chat_not_configured", slog.String("missing", gemini.CredentialEnv))
		fail(outcomeRejected, &apierr.ConfigError{Missing: gemini.CredentialEnv})
		return
	}

	// 3. Validation.
	req, err := chat.Decode(ctx.PostBody())
	if err != nil {
		log.Info("chat_invalid_request", slog.String("error", err.Error()))
		fail(outcomeRejected, err)
		return
	}
	entry.MessageChars = utf8.RuneCountInString(req.Message)
	entry.HistoryTurns = len(req.History)

	// 4. Circuit breaker.
	if !s.cb.Allow() {
		s.metrics.RecordCircuitBreakerRejection()
		fail(outcomeRejected, &apierr.UnavailableError{RetryAfter: s.cb.RetryAfter()})
		return
	}

	// 5. Upstream call. The context outlives this handler: the body is read
	// by the stream writer after the handler returns.
	upCtx, cancel := context.WithCancel(s.baseCtx)
	upStart := time.Now()
	body, err := s.upstream.Stream(upCtx, req)
	upDur := time.Since(upStart)
	if err != nil {
		cancel()
		s.recordUpstreamFailure(err, upDur)
		log.Warn("upstream_error", slog.String("error", err.Error()), slog.String("kind", apierr.Kind(err)))
		fail(outcomeFailed, err)
		return
	}
	s.metrics.ObserveUpstream(fasthttp.StatusOK, upDur)
	s.cb.RecordSuccess()
	entry.FirstByte = upDur

	// 6. Stream.
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")
	apierr.SetRateLimitHeaders(ctx, dec.Limit, dec.Remaining)

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		idle := sse.NewIdleReader(body, s.idleTimeout, cancel)
		res := sse.Result{Outcome: sse.OutcomeUpstreamError}

		defer func() {
			if r := recover(); r != nil {
				log.Error("stream_panic", slog.Any("panic", r))
			}
			idle.Stop()
			cancel()
			_ = body.Close()

			outcome := string(res.Outcome)
			if idle.TimedOut() {
				outcome = outcomeIdleTimeout
			}
			kind := "none"
			if res.Outcome != sse.OutcomeDone {
				kind = "stream"
			}
			dur := time.Since(start)
			s.metrics.ObserveStream(outcome, dur, res.TextEvents, res.ParseErrors)
			s.metrics.RecordChat(outcome, kind)

			entry.Status = fasthttp.StatusOK
			entry.Outcome = outcome
			if kind != "none" {
				entry.ErrorKind = kind
			}
			entry.TextEvents = res.TextEvents
			entry.OutputChars = res.Chars
			entry.Latency = dur
			s.logChat(entry)
		}()

		res = sse.Transcode(sse.NewWriter(w), idle, sse.Options{Logger: log})

		switch {
		case idle.TimedOut():
			log.Warn("stream_aborted", slog.String("reason", "idle_timeout"), slog.Duration("timeout", s.idleTimeout))
		case res.Outcome == sse.OutcomeClientGone:
			log.Info("stream_aborted", slog.String("reason", "client_gone"))
		}
	})
}

// recordUpstreamFailure feeds a failed upstream call to the metrics and the
// circuit breaker. Only server-side failures count against the breaker.
func (s *Server) recordUpstreamFailure(err error, dur time.Duration) {
	var (
		upstreamErr  *apierr.UpstreamError
		transportErr *apierr.TransportError
	)
	switch {
	case errors.As(err, &upstreamErr):
		s.metrics.ObserveUpstream(upstreamErr.Status, dur)
		if upstreamErr.Status >= fasthttp.StatusInternalServerError {
			s.cb.RecordFailure()
		} else {
			s.cb.Release()
		}
	case errors.As(err, &transportErr):
		s.metrics.ObserveUpstream(0, dur)
		s.cb.RecordFailure()
	default:
		s.cb.Release()
	}
}

func (s *Server) logChat(entry logger.ChatLog) {
	if s.reqLog != nil {
		s.reqLog.Log(entry)
	}
}
