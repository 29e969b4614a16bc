package rewriter

import (
	"context"
	"fmt"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// NavLink is one entry of the personal menu as the host renders it.
// Class and LinkClass are only rewritten when the host supplied them.
type NavLink struct {
	Text      string   `json:"text"`
	Href      string   `json:"href"`
	Class     *string  `json:"class,omitempty"`
	LinkClass []string `json:"link-class,omitzero"`
	Exists    bool     `json:"exists"`
}

// PersonalLinks is the personal menu keyed by section, then entry
type PersonalLinks map[string]map[string]*NavLink

// Personal menu sections and entries carrying the viewer's own pages
const (
	SectionUserPage = "user-page"
	SectionUserMenu = "user-menu"
	EntryUserPage   = "userpage"
	EntryMyTalk     = "mytalk"
)

type navEntry struct {
	section string
	key     string
	ns      wiki.Namespace
}

// personalEntries lists the entries to rewrite. The talk entry is labelled
// with a generic "talk" message, so only its href ever changes.
var personalEntries = []navEntry{
	{section: SectionUserPage, key: EntryUserPage, ns: wiki.NamespaceUser},
	{section: SectionUserMenu, key: EntryUserPage, ns: wiki.NamespaceUser},
	{section: SectionUserMenu, key: EntryMyTalk, ns: wiki.NamespaceUserTalk},
}

// PersonalNav rewrites the viewer's own user and talk entries in links.
// Changes are staged and applied only once every entry has been computed,
// so an error leaves links untouched.
func (rw *Rewriter) PersonalNav(ctx context.Context, viewer wiki.Viewer, links PersonalLinks) (bool, error) {
	policy := rw.opts.Policy
	if !policy.Enabled() || viewer.Name == "" {
		return false, nil
	}

	username := viewer.Name
	realName, err := rw.realNameOrUsername(ctx, username)
	if err != nil {
		return false, err
	}

	staged := make(map[*NavLink]NavLink)
	for _, e := range personalEntries {
		section, ok := links[e.section]
		if !ok {
			rw.logger.Debug().Str("section", e.section).Msg("personal menu section missing")
			continue
		}
		link, ok := section[e.key]
		if !ok || link == nil {
			rw.logger.Debug().Str("section", e.section).Str("entry", e.key).Msg("personal menu entry missing")
			continue
		}

		updated := *link
		if policy.LinkText && e.ns == wiki.NamespaceUser {
			updated.Text = rw.displayName(viewer, username, realName)
		}

		if policy.LinkRef {
			href, exists, err := rw.target(ctx, realName, e.ns)
			if err != nil {
				return false, fmt.Errorf("personal menu %s/%s: %w", e.section, e.key, err)
			}
			var classes []string
			if !exists {
				classes = []string{"new"}
			}
			updated.Href = href
			updated.Exists = exists
			if link.LinkClass != nil {
				updated.LinkClass = append([]string{}, classes...)
			}
			if link.Class != nil {
				class := ""
				if !exists {
					class = "new"
				}
				updated.Class = &class
			}
		}

		staged[link] = updated
	}

	for link, updated := range staged {
		*link = updated
		rw.logger.Debug().Str("text", updated.Text).Str("href", updated.Href).Msg("personal menu entry rewritten")
	}
	return len(staged) > 0, nil
}
