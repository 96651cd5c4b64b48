// Package reconcile diffs desired against deployed state, applies the
// difference through a backend in batches and reports per-item outcomes.
package reconcile

import "lf-playbook/internal/domain"

// Operation is the change a diff item calls for.
type Operation int

const (
	// OpCreate marks an item present in desired state only.
	OpCreate Operation = iota
	// OpRemove marks an item present in deployed state only.
	OpRemove
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Diff partitions two collections of one kind by id.
type Diff[T domain.Entity] struct {
	// ToCreate holds desired items missing from deployed, in desired order.
	ToCreate []T
	// ToRemove holds deployed items missing from desired, in deployed order.
	ToRemove []T
	// Unchanged holds the desired side of items present in both.
	Unchanged []T
}

// DiffSets computes D−P, P−D and D∩P keyed by id. Non-id fields are not
// compared: the id captures every semantically relevant field.
func DiffSets[T domain.Entity](desired, deployed *domain.Collection[T]) Diff[T] {
	var d Diff[T]
	for _, item := range desired.Items() {
		if deployed.Has(item.ID()) {
			d.Unchanged = append(d.Unchanged, item)
		} else {
			d.ToCreate = append(d.ToCreate, item)
		}
	}
	for _, item := range deployed.Items() {
		if !desired.Has(item.ID()) {
			d.ToRemove = append(d.ToRemove, item)
		}
	}
	return d
}

// Empty reports whether the diff calls for no change.
func (d Diff[T]) Empty() bool {
	return len(d.ToCreate) == 0 && len(d.ToRemove) == 0
}

// Chunk splits items into consecutive groups of at most size, preserving
// order. size < 1 is treated as 1.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}
