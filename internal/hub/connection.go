package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"relay/internal/core/domain/model/kernel"
)

// Connection is one live duplex client connection as seen by the relay core.
// The transport owns the socket; the hub owns identity, role, membership and the
// outbound buffer.
type Connection struct {
	id       kernel.UUID
	outbound chan []byte
	done     chan struct{}
	lastSeen atomic.Int64
	dropped  atomic.Int64

	mu    sync.Mutex
	role  kernel.Role
	rooms map[kernel.RoomKey]struct{}

	closeOnce sync.Once
}

// NewConnection allocates a connection with an outbound buffer of the given size.
func NewConnection(buffer int, now time.Time) *Connection {
	if buffer <= 0 {
		buffer = 1
	}
	c := &Connection{
		id:       kernel.NewUUID(),
		outbound: make(chan []byte, buffer),
		done:     make(chan struct{}),
		rooms:    make(map[kernel.RoomKey]struct{}),
	}
	c.lastSeen.Store(now.UnixNano())
	return c
}

func (c *Connection) ID() kernel.UUID { return c.id }

// Outbound is drained by the transport's write loop.
func (c *Connection) Outbound() <-chan []byte { return c.outbound }

// Done is closed once the connection has been unregistered.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Role() kernel.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Rooms returns a copy of the joined room keys.
func (c *Connection) Rooms() []kernel.RoomKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]kernel.RoomKey, 0, len(c.rooms))
	for k := range c.rooms {
		keys = append(keys, k)
	}
	return keys
}

// InRoom reports whether the connection joined key.
func (c *Connection) InRoom(key kernel.RoomKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[key]
	return ok
}

// Enqueue hands msg to the write loop without blocking. It returns false when the
// buffer is full or the connection is closed; the message is then dropped.
func (c *Connection) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbound <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Dropped counts messages lost to a full outbound buffer.
func (c *Connection) Dropped() int64 { return c.dropped.Load() }

// Touch records liveness.
func (c *Connection) Touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// close signals Done. The outbound channel is never closed, so a racing Enqueue
// cannot panic.
func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) setRole(role kernel.Role) (kernel.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role != kernel.RoleUnknown && c.role != role {
		return c.role, false
	}
	c.role = role
	return role, true
}

func (c *Connection) addRoom(key kernel.RoomKey) {
	c.mu.Lock()
	c.rooms[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Connection) removeRoom(key kernel.RoomKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[key]; !ok {
		return false
	}
	delete(c.rooms, key)
	return true
}
