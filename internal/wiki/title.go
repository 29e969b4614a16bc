package wiki

import (
	"fmt"
	"net"
	"strings"
	"unicode"
)

// maxTitleBytes mirrors the page.title column width
const maxTitleBytes = 255

// illegalTitleChars cannot appear anywhere in a page title
const illegalTitleChars = "#<>[]|{}"

// invalidUsernameChars cannot appear in account names; "/" would make a subpage
const invalidUsernameChars = "@:>=/"

// InvalidTitleError describes text that cannot be turned into a title
type InvalidTitleError struct {
	Text   string
	Reason string
}

func (e *InvalidTitleError) Error() string {
	return fmt.Sprintf("invalid title %q: %s", e.Text, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidTitle)
func (e *InvalidTitleError) Unwrap() error {
	return ErrInvalidTitle
}

// Title is a normalized page name within a namespace
type Title struct {
	ns   Namespace
	text string
}

// NewTitle normalizes text and builds a title in namespace ns.
// Underscores become spaces and runs of whitespace collapse to one space.
// Letter case is left alone; case folding belongs to the host.
func NewTitle(text string, ns Namespace) (Title, error) {
	for _, r := range text {
		if unicode.IsControl(r) {
			return Title{}, &InvalidTitleError{Text: text, Reason: "contains control characters"}
		}
	}

	normalized := strings.Join(strings.Fields(strings.ReplaceAll(text, "_", " ")), " ")
	switch {
	case normalized == "":
		return Title{}, &InvalidTitleError{Text: text, Reason: "empty"}
	case strings.HasPrefix(normalized, ":"):
		return Title{}, &InvalidTitleError{Text: text, Reason: "leading colon"}
	case len(normalized) > maxTitleBytes:
		return Title{}, &InvalidTitleError{Text: text, Reason: "too long"}
	case strings.ContainsAny(normalized, illegalTitleChars):
		return Title{}, &InvalidTitleError{Text: text, Reason: "contains illegal characters"}
	}

	return Title{ns: ns, text: normalized}, nil
}

// Namespace returns the title's namespace
func (t Title) Namespace() Namespace { return t.ns }

// Text returns the title text without namespace prefix
func (t Title) Text() string { return t.text }

// DBKey returns the text in storage form, spaces replaced by underscores
func (t Title) DBKey() string {
	return strings.ReplaceAll(t.text, " ", "_")
}

// RootText returns the text up to the first subpage separator
func (t Title) RootText() string {
	root, _, _ := strings.Cut(t.text, "/")
	return root
}

// PrefixedText returns "Namespace:Text", or just the text in the main namespace
func (t Title) PrefixedText() string {
	if p := t.ns.Prefix(); p != "" {
		return p + ":" + t.text
	}
	return t.text
}

// PrefixedDBKey is PrefixedText in storage form
func (t Title) PrefixedDBKey() string {
	return strings.ReplaceAll(t.PrefixedText(), " ", "_")
}

func (t Title) String() string {
	return t.PrefixedText()
}

// ValidUsername reports whether name can belong to a registered account.
// IP addresses are anonymous editors, never accounts.
func ValidUsername(name string) bool {
	if name == "" || strings.ContainsAny(name, invalidUsernameChars) {
		return false
	}
	if net.ParseIP(name) != nil {
		return false
	}
	t, err := NewTitle(name, NamespaceUser)
	if err != nil {
		return false
	}
	return t.Text() == name
}
