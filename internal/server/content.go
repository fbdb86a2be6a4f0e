package server

import (
	"path/filepath"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/MohitGoyal09/portfolio/internal/catalog"
	"github.com/MohitGoyal09/portfolio/internal/content"
	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

const maxRelated = 10

type modelResponse struct {
	*content.CaseStudy
	Navigation content.Navigation `json:"navigation"`
}

// handleModels lists published case studies, optionally filtered by
// ?technology=.
func (s *Server) handleModels(ctx *fasthttp.RequestCtx) {
	if tech := string(ctx.QueryArgs().Peek("technology")); tech != "" {
		writeJSON(ctx, nonNil(s.content.ByTechnology(tech)))
		return
	}
	writeJSON(ctx, nonNil(s.content.Published()))
}

func (s *Server) handleModel(ctx *fasthttp.RequestCtx) {
	slug, _ := ctx.UserValue("slug").(string)
	cs := s.content.BySlug(slug)
	if cs == nil {
		apierr.WriteMessage(ctx, fasthttp.StatusNotFound, apierr.MsgNotFound)
		return
	}
	writeJSON(ctx, modelResponse{
		CaseStudy:  cs,
		Navigation: content.Navigate(modelNavOrder(), slug),
	})
}

// handleRelated returns case studies sharing technologies with {slug}.
// ?limit= caps the result (default 2, at most 10).
func (s *Server) handleRelated(ctx *fasthttp.RequestCtx) {
	slug, _ := ctx.UserValue("slug").(string)
	if s.content.BySlug(slug) == nil {
		apierr.WriteMessage(ctx, fasthttp.StatusNotFound, apierr.MsgNotFound)
		return
	}
	limit := content.DefaultRelated
	if v, err := strconv.Atoi(string(ctx.QueryArgs().Peek("limit"))); err == nil && v > 0 {
		limit = min(v, maxRelated)
	}
	writeJSON(ctx, s.content.Related(slug, limit))
}

func (s *Server) handleTechnologies(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, s.content.Technologies())
}

// handleCatalog serves one of the static tables. /api/catalog/papers accepts
// ?featured=true.
func (s *Server) handleCatalog(ctx *fasthttp.RequestCtx) {
	kind, _ := ctx.UserValue("kind").(string)
	switch kind {
	case "projects":
		writeJSON(ctx, catalog.Projects())
	case "models":
		writeJSON(ctx, catalog.Models())
	case "papers":
		if ctx.QueryArgs().GetBool("featured") {
			writeJSON(ctx, nonNil(catalog.FeaturedPapers()))
			return
		}
		writeJSON(ctx, catalog.Papers())
	case "experience":
		writeJSON(ctx, catalog.Experiences())
	default:
		apierr.WriteMessage(ctx, fasthttp.StatusNotFound, apierr.MsgNotFound)
	}
}

// handleCertificates merges the configured certificates with the images
// found under the public certificates directory.
func (s *Server) handleCertificates(ctx *fasthttp.RequestCtx) {
	if s.publicDir == "" {
		writeJSON(ctx, nonNil(catalog.Certificates()))
		return
	}
	dir := filepath.Join(s.publicDir, "certificates")
	writeJSON(ctx, nonNil(content.Certificates(dir, catalog.Certificates(), s.log)))
}

// modelNavOrder is the catalog model order with display titles.
func modelNavOrder() []content.NavLink {
	titles := catalog.ModelTitles()
	order := catalog.ModelOrder()
	out := make([]content.NavLink, 0, len(order))
	for _, slug := range order {
		out = append(out, content.NavLink{Title: titles[slug], Slug: slug})
	}
	return out
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
