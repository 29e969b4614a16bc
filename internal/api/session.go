package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// Session keys written by the wiki host
const (
	SessionKeyUser   = "user"
	SessionKeyRights = "rights"
)

// ViewerSource tells who a request is rendered for
type ViewerSource interface {
	Viewer(r *http.Request) wiki.Viewer
}

// SessionViewers reads the viewer from the session cookie shared with the
// wiki host. Missing or unreadable sessions are anonymous viewers.
type SessionViewers struct {
	store  sessions.Store
	name   string
	logger zerolog.Logger
}

// NewSessionViewers creates a viewer source over store using cookie name
func NewSessionViewers(store sessions.Store, name string, logger zerolog.Logger) *SessionViewers {
	return &SessionViewers{
		store:  store,
		name:   name,
		logger: logger,
	}
}

// Viewer returns the session's viewer
func (s *SessionViewers) Viewer(r *http.Request) wiki.Viewer {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		s.logger.Debug().Err(err).Msg("unreadable session, treating viewer as anonymous")
		return wiki.Anonymous()
	}

	name, _ := session.Values[SessionKeyUser].(string)
	if name == "" {
		return wiki.Anonymous()
	}

	var rights []string
	switch v := session.Values[SessionKeyRights].(type) {
	case []string:
		rights = v
	case string:
		for _, right := range strings.Split(v, ",") {
			if right = strings.TrimSpace(right); right != "" {
				rights = append(rights, right)
			}
		}
	}

	return wiki.Viewer{Name: name, Rights: rights}
}

// NewCookieStore builds the cookie store for the shared session secret
func NewCookieStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
