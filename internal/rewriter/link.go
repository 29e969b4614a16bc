package rewriter

import (
	"context"

	"github.com/hfi/wiki-realnames/internal/wiki"
	"github.com/hfi/wiki-realnames/pkg/markup"
)

// LinkRequest describes one wikilink the host is about to render
type LinkRequest struct {
	Target wiki.Title
	// Class is the class attribute the host would put on the anchor
	Class string
}

// WikiLink rewrites a link to a user or user talk page. Links into any other
// namespace are returned Unchanged before any lookup happens.
//
// With only text rewriting enabled the result is TextOnly. Once the href is
// rewritten the host must not assemble the anchor itself, since it would
// rebuild it for the original target, so the result is a complete Fragment.
func (rw *Rewriter) WikiLink(ctx context.Context, viewer wiki.Viewer, req LinkRequest) (Result, error) {
	policy := rw.opts.Policy
	if !policy.Enabled() {
		return unchanged(), nil
	}
	ns := req.Target.Namespace()
	if !ns.IsUserSpace() {
		return unchanged(), nil
	}

	username := req.Target.Text()
	inner := markup.Text(username)
	if ns == wiki.NamespaceUserTalk {
		inner = markup.Text(rw.opts.TalkLinkText)
	}

	realName, err := rw.realNameOrUsername(ctx, username)
	if err != nil {
		return unchanged(), err
	}

	if policy.LinkText && ns == wiki.NamespaceUser {
		inner = markup.Isolate(markup.Text(rw.displayName(viewer, username, realName)))
		if !policy.LinkRef {
			rw.logger.Debug().Str("username", username).Str("text", inner).Msg("link text rewritten")
			return Result{Kind: TextOnly, HTML: inner}, nil
		}
	}
	if !policy.LinkRef {
		return unchanged(), nil
	}

	href, exists, err := rw.target(ctx, realName, ns)
	if err != nil {
		return unchanged(), err
	}
	class := req.Class
	if !exists {
		class = markup.JoinClasses("new", req.Class)
	}

	rw.logger.Debug().Str("username", username).Str("href", href).Bool("exists", exists).Msg("link retargeted")
	return Result{Kind: Fragment, HTML: markup.Anchor(href, class, inner)}, nil
}
