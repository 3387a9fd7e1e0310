package reconcile

import "context"

// Query produces a list of results, typically by reading the store.
type Query[T any] func(ctx context.Context) ([]T, error)

// Resolution carries the items of whichever query answered.
type Resolution[T any] struct {
	Items        []T
	FromFallback bool
}

// ResolveWithFallback runs primary and only runs fallback when primary returned
// no items. Errors from primary are returned as is and skip the fallback. The
// two result sets are never merged.
func ResolveWithFallback[T any](ctx context.Context, primary, fallback Query[T]) (Resolution[T], error) {
	items, err := primary(ctx)
	if err != nil {
		return Resolution[T]{}, err
	}
	if len(items) > 0 || fallback == nil {
		if items == nil {
			items = []T{}
		}
		return Resolution[T]{Items: items}, nil
	}

	items, err = fallback(ctx)
	if err != nil {
		return Resolution[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Resolution[T]{Items: items, FromFallback: true}, nil
}
