// Package testutil provides shared fakes of the backend capabilities for use
// in tests across the codebase.
package testutil

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"lf-playbook/internal/backend"
)

// === Lister ===

// ListCall records one ListPage invocation.
type ListCall struct {
	Method string
	Args   map[string]any
}

// MockLister implements backend.Lister from canned pages.
type MockLister struct {
	mu sync.Mutex

	// Pages maps a method to its pages keyed by the continuation token that
	// requests them. The first page is keyed by "". Unknown methods return an
	// empty page.
	Pages map[string]map[string]map[string]any
	// TokenArgs maps a method to the request parameter carrying the token.
	TokenArgs map[string]string
	// Errors maps a method to an error returned on every call.
	Errors map[string]error

	Calls []ListCall
}

// ListPage implements backend.Lister.
func (m *MockLister) ListPage(_ context.Context, method string, args map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, ListCall{Method: method, Args: maps.Clone(args)})
	if err := m.Errors[method]; err != nil {
		return nil, err
	}
	token, _ := args[m.TokenArgs[method]].(string)
	page, ok := m.Pages[method][token]
	if !ok {
		return map[string]any{}, nil
	}
	return page, nil
}

// CallCount returns how many pages of method were requested.
func (m *MockLister) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// SetPages registers the pages of method. Each page but the last is linked
// to the next one through tokenField/tokenArg with tokens "1", "2", ...
func (m *MockLister) SetPages(method, tokenArg, tokenField, itemsField string, pages ...[]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Pages == nil {
		m.Pages = make(map[string]map[string]map[string]any)
	}
	if m.TokenArgs == nil {
		m.TokenArgs = make(map[string]string)
	}
	m.TokenArgs[method] = tokenArg
	byToken := make(map[string]map[string]any, len(pages))
	for i, items := range pages {
		list := make([]any, len(items))
		for j, it := range items {
			list[j] = it
		}
		page := map[string]any{itemsField: list}
		if i < len(pages)-1 {
			page[tokenField] = tokenName(i + 1)
		}
		byToken[tokenName(i)] = page
	}
	m.Pages[method] = byToken
}

func tokenName(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}

// === Mutator ===

// MutateCall records one Mutate invocation.
type MutateCall struct {
	Op      backend.MutationOp
	Entries []backend.Entry
}

// MockMutator implements backend.Mutator. Every entry succeeds unless
// FailFn or ErrFn say otherwise.
type MockMutator struct {
	mu sync.Mutex

	// FailFn returns a per-entry failure, or nil for success.
	FailFn func(op backend.MutationOp, e backend.Entry) *backend.EntryFailure
	// ErrFn fails the whole call.
	ErrFn func(op backend.MutationOp, entries []backend.Entry) error

	Calls []MutateCall
}

// Mutate implements backend.Mutator.
func (m *MockMutator) Mutate(_ context.Context, op backend.MutationOp, entries []backend.Entry) ([]backend.EntryFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]backend.Entry, len(entries))
	copy(batch, entries)
	m.Calls = append(m.Calls, MutateCall{Op: op, Entries: batch})

	if m.ErrFn != nil {
		if err := m.ErrFn(op, entries); err != nil {
			return nil, err
		}
	}
	var failures []backend.EntryFailure
	if m.FailFn != nil {
		for _, e := range entries {
			if f := m.FailFn(op, e); f != nil {
				failures = append(failures, *f)
			}
		}
	}
	return failures, nil
}

// CallsFor returns the recorded calls of op.
func (m *MockMutator) CallsFor(op backend.MutationOp) []MutateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MutateCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
