package hub

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
)

// ErrRoleConflict is returned when a connection declares a role different from
// the one it already holds. The first declared role wins.
var ErrRoleConflict = errors.New("connection already holds a different role")

// Registry owns every live connection. All membership changes go through it.
type Registry struct {
	mu       sync.RWMutex
	conns    map[kernel.UUID]*Connection
	rooms    *Directory
	observer Observer
	logger   *slog.Logger
}

func NewRegistry(rooms *Directory, observer Observer, logger *slog.Logger) *Registry {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:    make(map[kernel.UUID]*Connection),
		rooms:    rooms,
		observer: observer,
		logger:   logger.With("component", "connection_registry"),
	}
}

// Rooms exposes the directory the registry keeps in sync.
func (r *Registry) Rooms() *Directory { return r.rooms }

// Register adds c with role unknown and no rooms.
func (r *Registry) Register(c *Connection) kernel.UUID {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()

	r.observer.ConnectionOpened()
	r.logger.Debug("connection registered", "connection", c.ID().String())
	return c.ID()
}

func (r *Registry) Get(id kernel.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// MarkRole records the role a connection declared on its first join.
// Repeating the same role is a no-op; a different role fails with ErrRoleConflict.
func (r *Registry) MarkRole(id kernel.UUID, role kernel.Role) error {
	c, ok := r.Get(id)
	if !ok {
		return errs.NewObjectNotFoundError("connectionID", id.String())
	}
	if held, ok := c.setRole(role); !ok {
		r.logger.Warn("role conflict",
			"connection", id.String(), "held", held.String(), "requested", role.String())
		return ErrRoleConflict
	}
	return nil
}

// Join puts the connection into key. Joining twice is the same as joining once.
func (r *Registry) Join(id kernel.UUID, key kernel.RoomKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return errs.NewObjectNotFoundError("connectionID", id.String())
	}
	r.rooms.Join(key, c)
	c.addRoom(key)
	return nil
}

// Leave removes the connection from key. Leaving a room it never joined is a no-op.
func (r *Registry) Leave(id kernel.UUID, key kernel.RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return
	}
	if c.removeRoom(key) {
		r.rooms.Leave(key, id)
	}
}

// Unregister removes the connection from every room it joined, then forgets it.
// Calling it for an unknown id is a no-op.
func (r *Registry) Unregister(id kernel.UUID) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	for _, key := range c.Rooms() {
		c.removeRoom(key)
		r.rooms.Leave(key, id)
	}
	delete(r.conns, id)
	r.mu.Unlock()

	c.close()
	r.observer.ConnectionClosed()
	r.logger.Debug("connection unregistered", "connection", id.String(), "dropped", c.Dropped())
}

// Touch records liveness for id.
func (r *Registry) Touch(id kernel.UUID, now time.Time) {
	if c, ok := r.Get(id); ok {
		c.Touch(now)
	}
}

// Stale lists connections that have not been seen since cutoff.
func (r *Registry) Stale(cutoff time.Time) []kernel.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []kernel.UUID
	for id, c := range r.conns {
		if c.LastSeen().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
