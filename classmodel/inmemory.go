package classmodel

// InMemory is a reference ClassUniverse: classes are kept in insertion
// order so ClassNames() is deterministic regardless of Go's randomized map
// iteration. It exists for tests and for the cmd/wasmaot demo driver; it is
// not a substitute for the (out of scope) real front end.
type InMemory struct {
	order   []string
	classes map[string]*ClassDescriptor
}

// NewInMemory returns an empty InMemory universe.
func NewInMemory() *InMemory {
	return &InMemory{classes: map[string]*ClassDescriptor{}}
}

// Add registers a class, appending it to iteration order. Re-adding a name
// replaces the descriptor in place without changing its position.
func (u *InMemory) Add(c *ClassDescriptor) {
	if _, exists := u.classes[c.Name]; !exists {
		u.order = append(u.order, c.Name)
	}
	u.classes[c.Name] = c
}

// ClassNames implements ClassUniverse.
func (u *InMemory) ClassNames() []string {
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// Get implements ClassUniverse.
func (u *InMemory) Get(name string) (*ClassDescriptor, bool) {
	c, ok := u.classes[name]
	return c, ok
}
