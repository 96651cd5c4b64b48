package domain

// Collection is an insertion-ordered set of entities keyed by id. Insert
// never overwrites.
type Collection[T Entity] struct {
	name  string
	keys  []string
	items map[string]T
}

// NewCollection creates an empty collection. name is used in errors.
func NewCollection[T Entity](name string) *Collection[T] {
	return &Collection[T]{name: name, items: make(map[string]T)}
}

// Add inserts item if its id is absent, else returns a DuplicateEntityError.
func (c *Collection[T]) Add(item T) error {
	id := item.ID()
	if _, ok := c.items[id]; ok {
		return ErrDuplicate(c.name, id)
	}
	c.keys = append(c.keys, id)
	c.items[id] = item
	return nil
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

// Has reports whether id is present.
func (c *Collection[T]) Has(id string) bool {
	_, ok := c.items[id]
	return ok
}

// Remove deletes id, preserving the order of the remaining items.
func (c *Collection[T]) Remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, k := range c.keys {
		if k == id {
			c.keys = append(c.keys[:i:i], c.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of items.
func (c *Collection[T]) Len() int { return len(c.keys) }

// IDs returns the ids in insertion order.
func (c *Collection[T]) IDs() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Items returns the items in insertion order.
func (c *Collection[T]) Items() []T {
	out := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }
