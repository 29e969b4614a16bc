// Package resolver memoizes the two lookups the rewriter depends on:
// username to real name, and title to current page id.
//
// A Resolver is meant to live for one rendering request. Its tables are never
// invalidated, so a page created after the first lookup of its title is not
// seen until the next Resolver. Both tables are guarded and misses are
// collapsed per key, so a Resolver shared between goroutines still performs
// one collaborator call per key.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hfi/wiki-realnames/internal/metrics"
	"github.com/hfi/wiki-realnames/internal/wiki"
)

type titleKey struct {
	dbKey string
	ns    wiki.Namespace
}

// Resolver caches real names and page ids for the lifetime of one request
type Resolver struct {
	accounts wiki.AccountStore
	pages    wiki.PageStore
	logger   zerolog.Logger

	mu        sync.Mutex
	realNames map[string]string
	pageIDs   map[titleKey]int64
	flight    singleflight.Group
}

// New creates an empty resolver over the given collaborators
func New(accounts wiki.AccountStore, pages wiki.PageStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		accounts:  accounts,
		pages:     pages,
		logger:    logger.With().Str("component", "resolver").Logger(),
		realNames: make(map[string]string),
		pageIDs:   make(map[titleKey]int64),
	}
}

// RealName returns the real name stored for username. The empty string means
// the account does not exist, the name is not a valid username, or no real
// name is set; that answer is cached like any other. Only store failures are
// returned as errors, and those are not cached.
func (r *Resolver) RealName(ctx context.Context, username string) (string, error) {
	r.mu.Lock()
	name, ok := r.realNames[username]
	r.mu.Unlock()
	metrics.RecordLookup("realname", ok)
	if ok {
		r.logger.Debug().Str("username", username).Str("real_name", name).Msg("cached real name")
		return name, nil
	}

	v, err, _ := r.flight.Do("u:"+username, func() (any, error) {
		r.mu.Lock()
		if cached, ok := r.realNames[username]; ok {
			r.mu.Unlock()
			return cached, nil
		}
		r.mu.Unlock()

		found, err := r.lookupRealName(ctx, username)
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		r.realNames[username] = found
		r.mu.Unlock()
		return found, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) lookupRealName(ctx context.Context, username string) (string, error) {
	if !wiki.ValidUsername(username) {
		r.logger.Debug().Str("username", username).Msg("invalid username, no real name")
		return "", nil
	}

	account, err := r.accounts.AccountByName(ctx, username)
	if errors.Is(err, wiki.ErrAccountNotFound) {
		r.logger.Debug().Str("username", username).Msg("no account")
		return "", nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("account").Inc()
		return "", fmt.Errorf("failed to look up account %q: %w", username, err)
	}

	if account.RealName == "" {
		r.logger.Debug().Str("username", username).Msg("no real name set")
	} else {
		r.logger.Debug().Str("username", username).Str("real_name", account.RealName).Msg("found real name")
	}
	return account.RealName, nil
}

// PageID returns the current page id of title, or wiki.PageIDMissing.
// The first lookup per title reads through the page store's fresh path.
func (r *Resolver) PageID(ctx context.Context, title wiki.Title) (int64, error) {
	key := titleKey{dbKey: title.DBKey(), ns: title.Namespace()}

	r.mu.Lock()
	id, ok := r.pageIDs[key]
	r.mu.Unlock()
	metrics.RecordLookup("pageid", ok)
	if ok {
		r.logger.Debug().Stringer("title", title).Int64("page_id", id).Msg("cached page id")
		return id, nil
	}

	flightKey := "p:" + strconv.Itoa(int(key.ns)) + ":" + key.dbKey
	v, err, _ := r.flight.Do(flightKey, func() (any, error) {
		r.mu.Lock()
		if cached, ok := r.pageIDs[key]; ok {
			r.mu.Unlock()
			return cached, nil
		}
		r.mu.Unlock()

		found, err := r.pages.CurrentPageID(ctx, title)
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("page").Inc()
			return int64(0), fmt.Errorf("failed to look up page %q: %w", title.PrefixedText(), err)
		}

		r.mu.Lock()
		r.pageIDs[key] = found
		r.mu.Unlock()
		r.logger.Debug().Stringer("title", title).Int64("page_id", found).Msg("found page id")
		return found, nil
	})
	if err != nil {
		return wiki.PageIDMissing, err
	}
	return v.(int64), nil
}

// Exists reports whether title currently has a page
func (r *Resolver) Exists(ctx context.Context, title wiki.Title) (bool, error) {
	id, err := r.PageID(ctx, title)
	if err != nil {
		return false, err
	}
	return id != wiki.PageIDMissing, nil
}
