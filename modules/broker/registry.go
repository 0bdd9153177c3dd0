package broker

import "sort"

// registry exclusively owns the displayName -> connection binding.
// It is not safe for concurrent use; the Broker serializes all access.
type registry struct {
	names map[string]*Conn
}

func newRegistry() *registry {
	return &registry{
		names: make(map[string]*Conn),
	}
}

// register binds name to c. Binding is first-write-wins: if another live
// connection holds the name the call fails with ErrNameTaken and state is
// unchanged. Re-claiming the connection's own name is a no-op. A connection
// that already holds a different name releases it on a successful rebind.
func (r *registry) register(c *Conn, name string) error {
	if holder, ok := r.names[name]; ok {
		if holder == c {
			return nil
		}
		return ErrNameTaken
	}

	if c.name != "" {
		delete(r.names, c.name)
	}
	r.names[name] = c
	c.name = name
	return nil
}

// unregister removes the binding if present. No-op if the connection never
// registered or was already removed.
func (r *registry) unregister(c *Conn) {
	if c.name == "" {
		return
	}
	if holder, ok := r.names[c.name]; ok && holder == c {
		delete(r.names, c.name)
	}
	c.name = ""
}

// lookup returns the live connection bound to name.
func (r *registry) lookup(name string) (*Conn, bool) {
	c, ok := r.names[name]
	return c, ok
}

// allNames returns every claimed display name, sorted.
func (r *registry) allNames() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
