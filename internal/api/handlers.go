package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hfi/wiki-realnames/internal/audit"
	"github.com/hfi/wiki-realnames/internal/metrics"
	"github.com/hfi/wiki-realnames/internal/rewriter"
	"github.com/hfi/wiki-realnames/internal/wiki"
)

// PersonalNavRequest carries the personal menu of one page render
type PersonalNavRequest struct {
	Links rewriter.PersonalLinks `json:"links"`
}

// PersonalNavResponse returns the menu, rewritten or as it came in
type PersonalNavResponse struct {
	Changed bool                   `json:"changed"`
	Links   rewriter.PersonalLinks `json:"links"`
}

// LinkRequest describes a wikilink about to be rendered
type LinkRequest struct {
	Namespace wiki.Namespace `json:"namespace"`
	Target    string         `json:"target"`
	Class     string         `json:"class,omitempty"`
}

// LinkResponse tells the host what to do with the link. HTML is the
// escaped inner text for "text" and the whole anchor for "fragment".
type LinkResponse struct {
	Kind string `json:"kind"`
	HTML string `json:"html,omitempty"`
}

// LinksRequest is a batch of wikilinks from the same page render
type LinksRequest struct {
	Links []LinkRequest `json:"links"`
}

// LinksResponse holds one result per requested link, in order
type LinksResponse struct {
	Results []LinkResponse `json:"results"`
}

// EditNoticeRequest carries edit-form text about to be shown
type EditNoticeRequest struct {
	Namespace wiki.Namespace `json:"namespace"`
	Title     string         `json:"title"`
	Action    string         `json:"action"`
	Text      string         `json:"text"`
}

// EditNoticeResponse returns the text to show, empty when suppressed
type EditNoticeResponse struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// PersonalNav handles POST /v1/rewrite/personal-nav
func (h *Handler) PersonalNav(w http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.WithLabelValues(OpportunityPersonalNav).Inc()
	start := time.Now()

	var req PersonalNavRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Links == nil {
		req.Links = rewriter.PersonalLinks{}
	}

	viewer := h.deps.Viewers.Viewer(r)
	changed, err := h.rewriterFor(r).PersonalNav(r.Context(), viewer, req.Links)
	if err != nil {
		observe(OpportunityPersonalNav, "error", start)
		h.fail(r.Context(), OpportunityPersonalNav, viewer, viewer.Name, err)
		writeJSON(w, PersonalNavResponse{Links: req.Links})
		return
	}

	if changed {
		observe(OpportunityPersonalNav, "rewritten", start)
		h.deps.Audit.Log(&audit.Event{
			Type:        audit.EventMenuRewritten,
			RequestID:   middleware.GetReqID(r.Context()),
			Opportunity: OpportunityPersonalNav,
			Viewer:      viewer.Name,
			Target:      viewer.Name,
		})
	} else {
		observe(OpportunityPersonalNav, rewriter.Unchanged.String(), start)
	}
	writeJSON(w, PersonalNavResponse{Changed: changed, Links: req.Links})
}

// WikiLink handles POST /v1/rewrite/link
func (h *Handler) WikiLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	viewer := h.deps.Viewers.Viewer(r)
	writeJSON(w, h.rewriteLink(r, h.rewriterFor(r), viewer, req))
}

// WikiLinks handles POST /v1/rewrite/links. All links share one resolver.
func (h *Handler) WikiLinks(w http.ResponseWriter, r *http.Request) {
	var req LinksRequest
	if !decodeBody(w, r, &req) {
		return
	}
	viewer := h.deps.Viewers.Viewer(r)
	rw := h.rewriterFor(r)

	resp := LinksResponse{Results: make([]LinkResponse, 0, len(req.Links))}
	for _, link := range req.Links {
		resp.Results = append(resp.Results, h.rewriteLink(r, rw, viewer, link))
	}
	writeJSON(w, resp)
}

func (h *Handler) rewriteLink(r *http.Request, rw *rewriter.Rewriter, viewer wiki.Viewer, req LinkRequest) LinkResponse {
	metrics.RequestsTotal.WithLabelValues(OpportunityLink).Inc()
	start := time.Now()
	ctx := r.Context()

	// Only user space is ever rewritten; other targets are not even parsed.
	if !req.Namespace.IsUserSpace() {
		observe(OpportunityLink, rewriter.Unchanged.String(), start)
		return LinkResponse{Kind: rewriter.Unchanged.String()}
	}

	title, err := wiki.NewTitle(req.Target, req.Namespace)
	if err != nil {
		observe(OpportunityLink, "error", start)
		h.fail(ctx, OpportunityLink, viewer, req.Target, err)
		return LinkResponse{Kind: rewriter.Unchanged.String()}
	}

	result, err := rw.WikiLink(ctx, viewer, rewriter.LinkRequest{Target: title, Class: req.Class})
	if err != nil {
		observe(OpportunityLink, "error", start)
		h.fail(ctx, OpportunityLink, viewer, title.PrefixedText(), err)
		return LinkResponse{Kind: rewriter.Unchanged.String()}
	}
	observe(OpportunityLink, result.Kind.String(), start)

	event := &audit.Event{
		RequestID:   middleware.GetReqID(ctx),
		Opportunity: OpportunityLink,
		Viewer:      viewer.Name,
		Target:      title.PrefixedText(),
	}
	switch result.Kind {
	case rewriter.TextOnly:
		event.Type = audit.EventNameSubstituted
		h.deps.Audit.Log(event)
	case rewriter.Fragment:
		event.Type = audit.EventLinkRetargeted
		h.deps.Audit.Log(event)
	}

	return LinkResponse{Kind: result.Kind.String(), HTML: result.HTML}
}

// EditNotice handles POST /v1/rewrite/edit-notice
func (h *Handler) EditNotice(w http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.WithLabelValues(OpportunityEditNotice).Inc()
	start := time.Now()

	var req EditNoticeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	viewer := h.deps.Viewers.Viewer(r)
	unchanged := EditNoticeResponse{Kind: rewriter.Unchanged.String(), Text: req.Text}

	title, err := wiki.NewTitle(req.Title, req.Namespace)
	if err != nil {
		observe(OpportunityEditNotice, "error", start)
		h.fail(r.Context(), OpportunityEditNotice, viewer, req.Title, err)
		writeJSON(w, unchanged)
		return
	}

	result, err := h.rewriterFor(r).EditNotice(r.Context(), rewriter.NoticeRequest{
		Title:  title,
		Action: req.Action,
		Text:   req.Text,
	})
	if err != nil {
		observe(OpportunityEditNotice, "error", start)
		h.fail(r.Context(), OpportunityEditNotice, viewer, title.PrefixedText(), err)
		writeJSON(w, unchanged)
		return
	}
	observe(OpportunityEditNotice, result.Kind.String(), start)

	if result.Kind != rewriter.Suppressed {
		writeJSON(w, unchanged)
		return
	}
	h.deps.Audit.Log(&audit.Event{
		Type:        audit.EventNoticeSuppressed,
		RequestID:   middleware.GetReqID(r.Context()),
		Opportunity: OpportunityEditNotice,
		Viewer:      viewer.Name,
		Target:      title.PrefixedText(),
	})
	writeJSON(w, EditNoticeResponse{Kind: result.Kind.String()})
}
