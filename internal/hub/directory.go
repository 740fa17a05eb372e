package hub

import (
	"slices"
	"sync"

	"relay/internal/core/domain/model/kernel"
)

type room struct {
	mu      sync.Mutex
	members map[kernel.UUID]*Connection
}

// RoomStat is a point-in-time view of one room.
type RoomStat struct {
	Key     string `json:"room"`
	Members int    `json:"members"`
}

// Directory maps room keys to member connections. Rooms are created on first join
// and deleted when their last member leaves; an absent room behaves as empty.
type Directory struct {
	mu       sync.RWMutex
	rooms    map[kernel.RoomKey]*room
	observer Observer
}

func NewDirectory(observer Observer) *Directory {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Directory{
		rooms:    make(map[kernel.RoomKey]*room),
		observer: observer,
	}
}

// Join adds c to key. Joining twice is the same as joining once.
func (d *Directory) Join(key kernel.RoomKey, c *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[key]
	if !ok {
		r = &room{members: make(map[kernel.UUID]*Connection)}
		d.rooms[key] = r
		d.observer.RoomCreated()
	}

	r.mu.Lock()
	r.members[c.ID()] = c
	r.mu.Unlock()
}

// Leave removes id from key and deletes the room if it became empty. It reports
// whether id was a member; leaving an absent room is a no-op.
func (d *Directory) Leave(key kernel.RoomKey, id kernel.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[key]
	if !ok {
		return false
	}

	r.mu.Lock()
	_, member := r.members[id]
	delete(r.members, id)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		delete(d.rooms, key)
		d.observer.RoomDeleted()
	}
	return member
}

// MembersOf returns the member ids of key, empty for an absent room.
func (d *Directory) MembersOf(key kernel.RoomKey) []kernel.UUID {
	d.mu.RLock()
	r, ok := d.rooms[key]
	d.mu.RUnlock()
	if !ok {
		return []kernel.UUID{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]kernel.UUID, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// Exists reports whether key currently has members.
func (d *Directory) Exists(key kernel.RoomKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[key]
	return ok
}

// Len returns the number of live rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Stats lists every live room sorted by key.
func (d *Directory) Stats() []RoomStat {
	d.mu.RLock()
	stats := make([]RoomStat, 0, len(d.rooms))
	for key, r := range d.rooms {
		r.mu.Lock()
		stats = append(stats, RoomStat{Key: key.String(), Members: len(r.members)})
		r.mu.Unlock()
	}
	d.mu.RUnlock()

	slices.SortFunc(stats, func(a, b RoomStat) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return stats
}

// Fanout calls deliver once for every distinct member of keys, skipping except
// when it is set. The destination rooms stay locked, in key order, until every
// delivery returned, which keeps per-room ordering linearizable. deliver must not
// block or call back into the Directory.
//
// It returns the number of connections deliver was called for.
func (d *Directory) Fanout(keys []kernel.RoomKey, except *kernel.UUID, deliver func(*Connection)) int {
	d.mu.RLock()
	locked := make([]*room, 0, len(keys))
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		r, ok := d.rooms[key]
		if !ok || slices.Contains(locked, r) {
			continue
		}
		locked = append(locked, r)
		names = append(names, key.String())
	}
	d.mu.RUnlock()

	order := make([]int, len(locked))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		switch {
		case names[a] < names[b]:
			return -1
		case names[a] > names[b]:
			return 1
		}
		return 0
	})

	for _, i := range order {
		locked[i].mu.Lock()
	}
	defer func() {
		for _, i := range order {
			locked[i].mu.Unlock()
		}
	}()

	seen := make(map[kernel.UUID]struct{})
	for _, i := range order {
		for id, c := range locked[i].members {
			if except != nil && id == *except {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			deliver(c)
		}
	}
	return len(seen)
}
