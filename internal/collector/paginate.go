// Package collector reads the live backend state into an unmanaged snapshot
// of principals and resources.
package collector

import (
	"context"
	"fmt"
	"iter"
	"maps"

	"lf-playbook/internal/backend"
)

// Listing describes a paginated method by the names of its fields.
type Listing struct {
	Method string
	Args   map[string]any
	// TokenArg is the request parameter that carries the continuation token.
	TokenArg string
	// TokenField is the response field holding the next token.
	TokenField string
	// ItemsField is the response field holding the page's items.
	ItemsField string
}

// Items walks every page of ls until the backend returns no continuation
// token. The sequence restarts from the first page on each iteration.
// Errors end the sequence after being yielded once.
func Items(ctx context.Context, l backend.Lister, ls Listing) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		args := maps.Clone(ls.Args)
		if args == nil {
			args = make(map[string]any)
		}
		prev := ""
		for {
			page, err := l.ListPage(ctx, ls.Method, args)
			if err != nil {
				yield(nil, fmt.Errorf("list %s: %w", ls.Method, err))
				return
			}
			items, err := pageItems(page, ls.ItemsField)
			if err != nil {
				yield(nil, fmt.Errorf("list %s: %w", ls.Method, err))
				return
			}
			for _, it := range items {
				if !yield(it, nil) {
					return
				}
			}

			token := str(page, ls.TokenField)
			if token == "" {
				return
			}
			if token == prev {
				yield(nil, fmt.Errorf("list %s: continuation token %q repeated", ls.Method, token))
				return
			}
			prev = token
			args[ls.TokenArg] = token
		}
	}
}

// All drains Items into a slice.
func All(ctx context.Context, l backend.Lister, ls Listing) ([]map[string]any, error) {
	var out []map[string]any
	for item, err := range Items(ctx, l, ls) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func pageItems(page map[string]any, field string) ([]map[string]any, error) {
	raw, ok := page[field]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a list", field, raw)
	}
	out := make([]map[string]any, 0, len(list))
	for i, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q item %d is %T, not an object", field, i, v)
		}
		out = append(out, m)
	}
	return out, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func obj(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func strs(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
