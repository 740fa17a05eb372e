package router

import (
	"encoding/json"
	"log/slog"
	"time"

	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/location"
	"relay/internal/hub"
	"relay/internal/tracking"
)

var _ tracking.Publisher = (*Broadcaster)(nil)

// ShapeFunc builds the payload copy a recipient of the given role receives.
type ShapeFunc func(role kernel.Role) any

// Broadcaster encodes role-shaped frames and fans them out through the room
// directory. Each role's frame is encoded at most once per broadcast.
type Broadcaster struct {
	rooms    *hub.Directory
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

func NewBroadcaster(rooms *hub.Directory, now func() time.Time, observer Observer, logger *slog.Logger) *Broadcaster {
	if now == nil {
		now = time.Now
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		rooms:    rooms,
		now:      now,
		observer: observer,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Broadcast delivers one copy of the event to every distinct member of keys
// except the given connection, and returns the number of recipients.
func (b *Broadcaster) Broadcast(keys []kernel.RoomKey, except *kernel.UUID, typ event.Type, shape ShapeFunc) int {
	emittedAt := b.now()
	frames := make(map[kernel.Role][]byte)

	return b.rooms.Fanout(keys, except, func(c *hub.Connection) {
		role := c.Role()
		frame, ok := frames[role]
		if !ok {
			var err error
			frame, err = encode(typ, shape(role), emittedAt)
			if err != nil {
				b.logger.Error("failed to encode event", "event", typ, "role", role.String(), "error", err)
				return
			}
			frames[role] = frame
		}
		if !c.Enqueue(frame) {
			b.observer.FrameDropped()
			b.logger.Warn("outbound buffer full, frame dropped",
				"event", typ, "connection", c.ID().String())
		}
	})
}

// PublishLocation broadcasts an aggregated driver position to the order room
// and the admin room. Customers do not see the driver id.
func (b *Broadcaster) PublishLocation(sample location.Sample) {
	full := event.DriverLocationPayload{
		OrderID:  sample.OrderID().String(),
		DriverID: sample.DriverID().String(),
		Location: event.Coordinates{
			Lat: sample.Position().Lat(),
			Lng: sample.Position().Lng(),
		},
		Sequence:   sample.Sequence(),
		RecordedAt: sample.ReceivedAt(),
	}

	b.Broadcast(
		[]kernel.RoomKey{kernel.OrderRoom(sample.OrderID()), kernel.AdminRoom},
		nil,
		event.DriverLocation,
		func(role kernel.Role) any {
			if role == kernel.RoleCustomer {
				return customerLocationView{OrderID: full.OrderID, Location: full.Location}
			}
			return full
		},
	)
}

func encode(typ event.Type, data any, emittedAt time.Time) ([]byte, error) {
	return json.Marshal(event.Outbound{Type: typ, Data: data, EmittedAt: emittedAt})
}
