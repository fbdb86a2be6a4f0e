package server

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/MohitGoyal09/portfolio/internal/catalog"
	"github.com/MohitGoyal09/portfolio/internal/mode"
	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

const modeCookieMaxAge = 365 * 24 * time.Hour

type modeResponse struct {
	Mode     mode.Mode         `json:"mode"`
	Sections []catalog.Section `json:"sections"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleGetMode(ctx *fasthttp.RequestCtx) {
	writeMode(ctx, currentMode(ctx))
}

// handleSetMode stores the mode from a {"mode": ...} body.
func (s *Server) handleSetMode(ctx *fasthttp.RequestCtx) {
	var body modeRequest
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		apierr.WriteError(ctx, &apierr.ValidationError{Details: []apierr.FieldError{{
			Path: "", Message: "request body must be a JSON object", Code: "invalid_json",
		}}})
		return
	}
	m := mode.Mode(body.Mode)
	if !m.Valid() {
		apierr.WriteError(ctx, &apierr.ValidationError{Details: []apierr.FieldError{{
			Path: "mode", Message: "must be one of: engineering, research", Code: "invalid_enum_value",
		}}})
		return
	}
	setModeCookie(ctx, m)
	writeMode(ctx, m)
}

func (s *Server) handleToggleMode(ctx *fasthttp.RequestCtx) {
	m := currentMode(ctx).Toggle()
	setModeCookie(ctx, m)
	writeMode(ctx, m)
}

func currentMode(ctx *fasthttp.RequestCtx) mode.Mode {
	return mode.Parse(string(ctx.Request.Header.Cookie(mode.CookieName)))
}

func setModeCookie(ctx *fasthttp.RequestCtx, m mode.Mode) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetKey(mode.CookieName)
	c.SetValue(m.String())
	c.SetPath("/")
	c.SetMaxAge(int(modeCookieMaxAge / time.Second))
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	ctx.Response.Header.SetCookie(c)
}

func writeMode(ctx *fasthttp.RequestCtx, m mode.Mode) {
	writeJSON(ctx, modeResponse{Mode: m, Sections: catalog.Sections(m)})
}
