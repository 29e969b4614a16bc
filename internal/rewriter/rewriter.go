// Package rewriter applies the real-name policy to the three places a wiki
// page shows account names: the personal menu, user and user talk wikilinks,
// and the "user does not exist" edit notice.
//
// Each entry point is a single evaluate-and-return pass. When a lookup or a
// title construction fails the entry point returns the error together with
// an Unchanged result, and host structures are left as they were.
package rewriter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// Policy is the set of switches read from configuration
type Policy struct {
	// LinkText replaces display text with the real name
	LinkText bool `yaml:"link_text"`
	// LinkRef points links at the real-name page and restyles them by existence
	LinkRef bool `yaml:"link_ref"`
	// AppendUsername adds "(username)" after the real name for viewers with the block right
	AppendUsername bool `yaml:"append_username"`
}

// Enabled reports whether the policy rewrites anything at all
func (p Policy) Enabled() bool {
	return p.LinkText || p.LinkRef
}

// Lookup is the memoized view of accounts and pages the rewriter reads.
// *resolver.Resolver satisfies it.
type Lookup interface {
	RealName(ctx context.Context, username string) (string, error)
	PageID(ctx context.Context, title wiki.Title) (int64, error)
}

// Options configures a Rewriter
type Options struct {
	Policy Policy
	URLs   wiki.URLBuilder
	// TalkLinkText is the localized label shown for user talk links
	TalkLinkText string
	// UserNotExistMarker identifies the notice EditNotice may suppress
	UserNotExistMarker string
}

// Rewriter turns usernames into real names in host-owned link structures.
// It holds no mutable state of its own.
type Rewriter struct {
	lookup   Lookup
	accounts wiki.AccountStore
	opts     Options
	logger   zerolog.Logger
}

// New creates a rewriter. lookup should be scoped to the current request;
// accounts is queried directly by EditNotice.
func New(lookup Lookup, accounts wiki.AccountStore, opts Options, logger zerolog.Logger) *Rewriter {
	return &Rewriter{
		lookup:   lookup,
		accounts: accounts,
		opts:     opts,
		logger:   logger.With().Str("component", "rewriter").Logger(),
	}
}

// Policy returns the policy this rewriter applies
func (rw *Rewriter) Policy() Policy {
	return rw.opts.Policy
}

// realNameOrUsername resolves username, falling back to username itself
func (rw *Rewriter) realNameOrUsername(ctx context.Context, username string) (string, error) {
	realName, err := rw.lookup.RealName(ctx, username)
	if err != nil {
		return "", err
	}
	if realName == "" {
		return username, nil
	}
	rw.logger.Debug().Str("username", username).Str("real_name", realName).Msg("substituting real name")
	return realName, nil
}

// displayName is the text shown for a user link: the real name, followed by
// the username for viewers allowed to block when the two differ.
func (rw *Rewriter) displayName(viewer wiki.Viewer, username, realName string) string {
	if rw.opts.Policy.AppendUsername && realName != username && viewer.IsAllowed(wiki.RightBlock) {
		return realName + " (" + username + ")"
	}
	return realName
}

// target builds the real-name title in ns and returns its href and whether
// the page exists. Missing pages link to the edit form.
func (rw *Rewriter) target(ctx context.Context, realName string, ns wiki.Namespace) (href string, exists bool, err error) {
	title, err := wiki.NewTitle(realName, ns)
	if err != nil {
		return "", false, err
	}
	id, err := rw.lookup.PageID(ctx, title)
	if err != nil {
		return "", false, err
	}
	if id == wiki.PageIDMissing {
		return rw.opts.URLs.EditURL(title), false, nil
	}
	return rw.opts.URLs.LocalURL(title, nil), true, nil
}
