// Package cache memoizes market-data fetches per (operation, symbol) for the
// lifetime of the process.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Operation identifies which fetcher produced a cached value.
type Operation string

const (
	OpProfile             Operation = "profile"
	OpPriceHistory        Operation = "price_history"
	OpQuarterlyFinancials Operation = "quarterly_financials"
	OpAnnualFinancials    Operation = "annual_financials"
)

// Store maps (operation, symbol) to a previously fetched value.
// Entries never expire; a key is only overwritten by a later fetch.
// It is safe for concurrent use.
type Store struct {
	c *gocache.Cache
}

// NewStore creates an empty store. Construct one per process and share it.
func NewStore() *Store {
	// A zero cleanup interval disables the janitor goroutine.
	return &Store{c: gocache.New(gocache.NoExpiration, 0)}
}

func key(op Operation, symbol string) string {
	return string(op) + ":" + symbol
}

// Get returns the stored value for the key, if any.
func (s *Store) Get(op Operation, symbol string) (any, bool) {
	return s.c.Get(key(op, symbol))
}

// Set stores v under the key, replacing any previous value.
func (s *Store) Set(op Operation, symbol string, v any) {
	s.c.Set(key(op, symbol), v, gocache.NoExpiration)
}

// Has reports whether the key is present.
func (s *Store) Has(op Operation, symbol string) bool {
	_, ok := s.Get(op, symbol)
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return s.c.ItemCount()
}

// Flush drops every entry.
func (s *Store) Flush() {
	s.c.Flush()
}
