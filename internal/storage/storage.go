// Package storage provides the account and page stores the resolver reads:
// an in-memory store, a SQL store for sqlite and postgres, and a Redis
// account mirror.
package storage

import (
	"context"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// AccountBackend is an account store that can be health-checked and closed
type AccountBackend interface {
	wiki.AccountStore

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases any resources
	Close() error
}

// PageBackend is a page store that can be health-checked and closed
type PageBackend interface {
	wiki.PageStore

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases any resources
	Close() error
}
