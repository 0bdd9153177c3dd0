package broker

// Sink receives outbound events for a single connection. Delivery is
// fire-and-forget: the broker never waits on, retries, or inspects the
// outcome of a delivery, and a failed delivery to one recipient must not
// affect delivery to the rest. Implementations serialize their own writes.
type Sink interface {
	Deliver(eventType string, payload any)
}

// Conn is an opaque handle to a live transport session. The session
// identifier is assigned at connect time and never reused. The name and
// room fields are owned by the broker and mutated only under its lock.
type Conn struct {
	id   string
	sink Sink
	name string
	room string
}

// ID returns the session identifier.
func (c *Conn) ID() string {
	return c.id
}
