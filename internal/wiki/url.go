package wiki

import (
	"net/url"
	"strings"
)

// URLBuilder turns titles into site-local URLs
type URLBuilder struct {
	// ArticlePath is the view URL pattern, $1 is replaced by the title
	ArticlePath string `yaml:"article_path"`
	// ScriptPath is the entry point used when a query string is needed
	ScriptPath string `yaml:"script_path"`
}

// DefaultURLBuilder returns the conventional /wiki/$1 and /index.php layout
func DefaultURLBuilder() URLBuilder {
	return URLBuilder{
		ArticlePath: "/wiki/$1",
		ScriptPath:  "/index.php",
	}
}

// titleUnescaper restores characters that are safe in a title path segment
var titleUnescaper = strings.NewReplacer(
	"%3B", ";",
	"%40", "@",
	"%24", "$",
	"%21", "!",
	"%2A", "*",
	"%28", "(",
	"%29", ")",
	"%2C", ",",
	"%2F", "/",
	"%3A", ":",
)

func escapeTitle(dbKey string) string {
	return titleUnescaper.Replace(url.QueryEscape(dbKey))
}

// LocalURL returns the view URL for t, or the script URL carrying query
// when query is non-empty.
func (b URLBuilder) LocalURL(t Title, query url.Values) string {
	key := escapeTitle(t.PrefixedDBKey())
	if len(query) == 0 {
		return strings.Replace(b.ArticlePath, "$1", key, 1)
	}
	return b.ScriptPath + "?title=" + key + "&" + query.Encode()
}

// EditURL returns the edit form URL used for red links
func (b URLBuilder) EditURL(t Title) string {
	return b.LocalURL(t, url.Values{"action": {"edit"}, "redlink": {"1"}})
}
