// Package cartsync relays shared-cart snapshots between the devices of one
// customer. The relay does no conflict resolution: every update is forwarded as
// is to the other members of the cart room.
package cartsync

import (
	"encoding/json"
	"log/slog"
	"time"

	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/hub"
)

// Service joins connections to cart rooms and fans updates out to them.
type Service struct {
	registry *hub.Registry
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(registry *hub.Registry, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		now:      now,
		logger:   logger.With("component", "cart_session_sync"),
	}
}

// Join puts the connection into cart:<cartID>.
func (s *Service) Join(connID kernel.UUID, cartID kernel.EntityID) (kernel.RoomKey, error) {
	room := kernel.CartRoom(cartID)
	return room, s.registry.Join(connID, room)
}

func (s *Service) Leave(connID kernel.UUID, cartID kernel.EntityID) kernel.RoomKey {
	room := kernel.CartRoom(cartID)
	s.registry.Leave(connID, room)
	return room
}

// Publish forwards snapshot to every member of the cart room except from. The
// publisher need not be a member. It returns the number of recipients.
func (s *Service) Publish(cartID kernel.EntityID, from kernel.UUID, snapshot json.RawMessage) int {
	frame, err := json.Marshal(event.Outbound{
		Type:      event.CartUpdate,
		Data:      event.CartUpdatePayload{CartID: cartID.String(), Cart: snapshot},
		EmittedAt: s.now(),
	})
	if err != nil {
		s.logger.Error("failed to encode cart update", "cart", cartID.String(), "error", err)
		return 0
	}

	delivered := s.registry.Rooms().Fanout([]kernel.RoomKey{kernel.CartRoom(cartID)}, &from, func(c *hub.Connection) {
		if !c.Enqueue(frame) {
			s.logger.Warn("cart update dropped", "cart", cartID.String(), "connection", c.ID().String())
		}
	})
	return delivered
}
