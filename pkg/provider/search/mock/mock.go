// Package mock provides a configurable in-memory search.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/search"
)

// Provider is a configurable mock for search.Provider.
type Provider struct {
	mu sync.Mutex

	// SearchResult is returned by Search when SearchErr is nil.
	SearchResult *search.Result
	// SearchErr, when set, is returned by every Search call.
	SearchErr error
	// SearchFn, when set, overrides the canned result entirely.
	SearchFn func(ctx context.Context, q search.Query) (*search.Result, error)

	// SearchCalls records every query in order.
	SearchCalls []search.Query
}

var _ search.Provider = (*Provider)(nil)

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	p.mu.Lock()
	p.SearchCalls = append(p.SearchCalls, q)
	fn := p.SearchFn
	res, err := p.SearchResult, p.SearchErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return &search.Result{}, nil
}
