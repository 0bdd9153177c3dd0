package broker

import "sort"

// directory exclusively owns room membership. Member lists keep join order
// so roster snapshots are deterministic. A room with zero members is
// dropped; rooms are created implicitly on first join. Not safe for
// concurrent use; the Broker serializes all access.
type directory struct {
	rooms map[string][]*Conn
}

func newDirectory() *directory {
	return &directory{
		rooms: make(map[string][]*Conn),
	}
}

// join adds c to room, creating the room if absent. A connection occupies
// at most one room at a time: joining while a member of another room leaves
// that room first, and its name is returned in moved so the caller can
// announce the departure. Re-joining the current room is a no-op that keeps
// the original position. The returned slice is the updated member snapshot.
func (d *directory) join(c *Conn, room string) (members []*Conn, moved string) {
	if c.room == room {
		return d.membersOf(room), ""
	}

	if c.room != "" {
		moved = c.room
		d.remove(c, c.room)
	}

	d.rooms[room] = append(d.rooms[room], c)
	c.room = room
	return d.membersOf(room), moved
}

// leave removes c from the named room. No-op if c is not a member.
func (d *directory) leave(c *Conn, room string) {
	if c.room != room {
		return
	}
	d.remove(c, room)
	c.room = ""
}

// leaveAll removes c from whichever room it occupies, returning the
// affected room so the caller can recompute presence. Used on disconnect;
// it must succeed for partially set up connections, so a roomless
// connection is a no-op.
func (d *directory) leaveAll(c *Conn) (string, bool) {
	if c.room == "" {
		return "", false
	}
	room := c.room
	d.remove(c, room)
	c.room = ""
	return room, true
}

// membersOf returns a snapshot of the room's members in join order.
func (d *directory) membersOf(room string) []*Conn {
	members := d.rooms[room]
	if len(members) == 0 {
		return nil
	}
	snapshot := make([]*Conn, len(members))
	copy(snapshot, members)
	return snapshot
}

// roomNames returns the names of all non-empty rooms, sorted.
func (d *directory) roomNames() []string {
	names := make([]string, 0, len(d.rooms))
	for name := range d.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// memberCount returns the number of members in room.
func (d *directory) memberCount(room string) int {
	return len(d.rooms[room])
}

func (d *directory) remove(c *Conn, room string) {
	members := d.rooms[room]
	for i, member := range members {
		if member == c {
			d.rooms[room] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(d.rooms[room]) == 0 {
		delete(d.rooms, room)
	}
}
