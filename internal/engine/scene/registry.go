package scene

// Tag names a homogeneous collection in a Registry. The type parameter fixes
// what the collection holds, so lookups never need a type switch.
type Tag[T any] struct {
	name string
}

// NewTag returns a tag with a unique name.
func NewTag[T any](name string) Tag[T] {
	return Tag[T]{name: name}
}

// String returns the tag name.
func (t Tag[T]) String() string {
	return t.name
}

// Registry maps capability tags to collections filled at assembly time.
type Registry struct {
	entries map[string]any
}

// Register appends v to the collection of tag.
func Register[T any](r *Registry, tag Tag[T], v T) {
	if r.entries == nil {
		r.entries = make(map[string]any)
	}
	list, _ := r.entries[tag.name].([]T)
	r.entries[tag.name] = append(list, v)
}

// All returns the collection of tag in registration order.
func All[T any](r *Registry, tag Tag[T]) []T {
	list, _ := r.entries[tag.name].([]T)
	return list
}

// Count returns the size of the collection of tag.
func Count[T any](r *Registry, tag Tag[T]) int {
	return len(All(r, tag))
}

// Reset empties every collection.
func (r *Registry) Reset() {
	r.entries = nil
}
