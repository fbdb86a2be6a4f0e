package server

import (
	"encoding/json"
	"path/filepath"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	r.RedirectTrailingSlash = false

	r.POST("/api/chat", s.instrument("/api/chat", s.handleChat))

	r.GET("/api/models", s.instrument("/api/models", s.handleModels))
	r.GET("/api/models/{slug}", s.instrument("/api/models/{slug}", s.handleModel))
	r.GET("/api/models/{slug}/related", s.instrument("/api/models/{slug}/related", s.handleRelated))
	r.GET("/api/technologies", s.instrument("/api/technologies", s.handleTechnologies))

	r.GET("/api/catalog/{kind}", s.instrument("/api/catalog/{kind}", s.handleCatalog))
	r.GET("/api/certificates", s.instrument("/api/certificates", s.handleCertificates))

	r.GET("/api/mode", s.instrument("/api/mode", s.handleGetMode))
	r.PUT("/api/mode", s.instrument("/api/mode", s.handleSetMode))
	r.POST("/api/mode/toggle", s.instrument("/api/mode/toggle", s.handleToggleMode))

	if s.publicDir != "" {
		root, err := filepath.Abs(filepath.Join(s.publicDir, "certificates"))
		if err != nil {
			root = filepath.Join(s.publicDir, "certificates")
		}
		r.ServeFilesCustom("/certificates/{filepath:*}", &fasthttp.FS{
			Root:               root,
			GenerateIndexPages: false,
			AcceptByteRange:    true,
			Compress:           false,
		})
	}

	r.GET("/health", s.handleHealth)
	r.GET("/readiness", s.handleReadiness)
	r.GET("/metrics", s.metrics.Handler())

	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		apierr.WriteMessage(ctx, fasthttp.StatusMethodNotAllowed, apierr.MsgMethodNotAllowed)
	}
	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		apierr.WriteMessage(ctx, fasthttp.StatusNotFound, apierr.MsgNotFound)
	}

	return applyMiddleware(r.Handler,
		recovery,
		requestID,
		timing,
		corsHandler(s.corsOrigins),
		securityHeaders,
	)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, s.health.Snapshot())
}

func (s *Server) handleReadiness(ctx *fasthttp.RequestCtx) {
	if s.health.ReadinessOK() {
		writeJSON(ctx, map[string]string{"status": "ok"})
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	writeJSON(ctx, map[string]string{"status": "unavailable"})
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	data, _ := json.Marshal(v)
	ctx.SetBody(data)
}
