// Package wiki models the parts of the wiki host the real-name layer reads
// from: namespaces, titles, accounts, pages and the acting viewer.
package wiki

import (
	"context"
	"errors"
	"slices"
)

// Namespace is a wiki namespace id
type Namespace int

const (
	NamespaceMain     Namespace = 0
	NamespaceTalk     Namespace = 1
	NamespaceUser     Namespace = 2
	NamespaceUserTalk Namespace = 3
	NamespaceProject  Namespace = 4
)

// Prefix returns the canonical namespace prefix used in prefixed titles
func (n Namespace) Prefix() string {
	switch n {
	case NamespaceMain:
		return ""
	case NamespaceTalk:
		return "Talk"
	case NamespaceUser:
		return "User"
	case NamespaceUserTalk:
		return "User talk"
	case NamespaceProject:
		return "Project"
	default:
		return ""
	}
}

// IsUserSpace reports whether n is the user or user talk namespace
func (n Namespace) IsUserSpace() bool {
	return n == NamespaceUser || n == NamespaceUserTalk
}

// PageIDMissing is the page id reported for pages that do not exist
const PageIDMissing int64 = 0

// RightBlock is the right that lets a viewer see usernames next to real names
const RightBlock = "block"

var (
	// ErrAccountNotFound is returned by account stores when no account matches
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidTitle is wrapped by every title construction failure
	ErrInvalidTitle = errors.New("invalid title")
)

// Account is the subset of a wiki account the real-name layer needs
type Account struct {
	Name     string
	RealName string
}

// AccountStore looks up accounts by login name or by real name.
// Both methods return ErrAccountNotFound when nothing matches.
type AccountStore interface {
	AccountByName(ctx context.Context, name string) (*Account, error)
	AccountByRealName(ctx context.Context, realName string) (*Account, error)
}

// PageStore reports page ids. CurrentPageID must read the authoritative copy
// so pages created or deleted moments ago are reflected; it returns
// PageIDMissing when the page does not exist.
type PageStore interface {
	CurrentPageID(ctx context.Context, title Title) (int64, error)
}

// Viewer is the authenticated user a page is rendered for
type Viewer struct {
	Name   string   `json:"name"`
	Rights []string `json:"rights,omitempty"`
}

// Anonymous returns a viewer with no name and no rights
func Anonymous() Viewer {
	return Viewer{}
}

// IsAllowed reports whether the viewer holds right
func (v Viewer) IsAllowed(right string) bool {
	return slices.Contains(v.Rights, right)
}
