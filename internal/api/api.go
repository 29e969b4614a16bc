// Package api exposes the rewriter to the wiki host over HTTP. Each request
// carries the structures of one page render and gets its own resolver, so
// lookups are memoized across everything in that request and nothing else.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hfi/wiki-realnames/internal/audit"
	"github.com/hfi/wiki-realnames/internal/metrics"
	"github.com/hfi/wiki-realnames/internal/resolver"
	"github.com/hfi/wiki-realnames/internal/rewriter"
	"github.com/hfi/wiki-realnames/internal/wiki"
)

// Rewrite opportunities, used as metric and audit labels
const (
	OpportunityPersonalNav = "personal_nav"
	OpportunityLink        = "link"
	OpportunityEditNotice  = "edit_notice"
)

// Deps are the collaborators a Handler needs
type Deps struct {
	Accounts wiki.AccountStore
	Pages    wiki.PageStore
	Viewers  ViewerSource
	Options  rewriter.Options
	Audit    audit.Recorder
	Logger   zerolog.Logger
}

// Handler serves the rewrite endpoints
type Handler struct {
	deps   Deps
	logger zerolog.Logger
}

// NewHandler creates a handler. A nil Audit recorder disables auditing and
// a nil Viewers source treats every request as anonymous.
func NewHandler(deps Deps) *Handler {
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger{}
	}
	if deps.Viewers == nil {
		deps.Viewers = anonymousViewers{}
	}
	return &Handler{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "api").Logger(),
	}
}

// Routes returns the router for the rewrite API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Route("/v1/rewrite", func(r chi.Router) {
		r.Post("/personal-nav", h.PersonalNav)
		r.Post("/link", h.WikiLink)
		r.Post("/links", h.WikiLinks)
		r.Post("/edit-notice", h.EditNotice)
	})
	return r
}

// rewriterFor builds a rewriter over a fresh resolver for one request
func (h *Handler) rewriterFor(r *http.Request) *rewriter.Rewriter {
	logger := h.logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	lookup := resolver.New(h.deps.Accounts, h.deps.Pages, logger)
	return rewriter.New(lookup, h.deps.Accounts, h.deps.Options, logger)
}

// fail records a rewrite error. The response still goes out, unchanged.
func (h *Handler) fail(ctx context.Context, opportunity string, viewer wiki.Viewer, target string, err error) {
	h.logger.Warn().
		Err(err).
		Str("request_id", middleware.GetReqID(ctx)).
		Str("opportunity", opportunity).
		Str("target", target).
		Msg("rewrite failed, leaving output unchanged")
	h.deps.Audit.Log(&audit.Event{
		Type:        audit.EventRewriteFailed,
		RequestID:   middleware.GetReqID(ctx),
		Opportunity: opportunity,
		Viewer:      viewer.Name,
		Target:      target,
		Error:       err.Error(),
	})
}

func observe(opportunity, outcome string, start time.Time) {
	metrics.RecordRewrite(opportunity, outcome, time.Since(start).Seconds())
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

type anonymousViewers struct{}

func (anonymousViewers) Viewer(_ *http.Request) wiki.Viewer { return wiki.Anonymous() }
